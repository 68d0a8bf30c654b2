package sqlite

// DefaultDSN is a private in-memory database. It lives as long as the single
// pooled connection does.
const DefaultDSN = ":memory:"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   ":memory:" (the default)
	//   "file:dmart.db?_pragma=journal_mode(WAL)"
	//   "dmart.db" (interpreted by the driver)
	DSN string
}
