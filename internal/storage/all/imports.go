// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "sqlite"   (dmart/internal/storage/sqlite)
//   - "postgres" (dmart/internal/storage/postgres)
//   - "mssql"    (dmart/internal/storage/mssql)
//
// Typical usage (in cmd/dmart or a similar wiring layer):
//
//	import _ "dmart/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite"})
package all

import (
	_ "dmart/internal/storage/mssql"
	_ "dmart/internal/storage/postgres"
	_ "dmart/internal/storage/sqlite"
)
