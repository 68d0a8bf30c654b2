// Package storage defines the storage-agnostic contract used by the SQL
// engines: a Repository can create a scratch table, bulk-copy rows into it,
// run aggregate queries against it and drop it again.
//
// Backends (sqlite, postgres, mssql) live in subpackages and register a
// Factory at init time; callers obtain a Repository with New and never import
// a backend directly. Import dmart/internal/storage/all to enable every
// built-in backend.
package storage

import (
	"context"

	"dmart/internal/ddl"
)

// Repository is the minimal surface a SQL backend exposes.
type Repository interface {
	// Dialect supplies identifier quoting and column types for DDL and
	// query text.
	Dialect() ddl.Dialect

	// CopyFrom bulk-inserts rows into table. Row values are frame cells
	// (string, int64, float64, time.Time, bool or nil) aligned to columns.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Query runs a SELECT and returns every row as driver values.
	Query(ctx context.Context, sqlText string) ([][]any, error)

	// Exec runs a statement that returns no rows (typically DDL).
	Exec(ctx context.Context, sqlText string) error

	Close()
}
