package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"dmart/internal/frame"
)

// TestCopyFromEmptyRows verifies that CopyFrom short-circuits when no rows
// are provided and does not require a live database connection.
func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := &Repository{db: nil} // must not be used in this path

	got, err := r.CopyFrom(context.Background(), "dbo.t", []string{"id", "name"}, nil)
	if err != nil {
		t.Fatalf("CopyFrom(nil...) error = %v, want nil", err)
	}
	if got != 0 {
		t.Fatalf("CopyFrom(nil...) = %d, want 0", got)
	}
}

func TestNewRepository_RejectsBadDSN(t *testing.T) {
	t.Parallel()

	for _, dsn := range []string{"", "sqlserver://%zz"} {
		if _, _, err := NewRepository(context.Background(), Config{DSN: dsn}); err == nil {
			t.Errorf("NewRepository(%q) error = nil, want non-nil", dsn)
		}
	}
}

// TestMsIdent verifies the MSSQL identifier quoting and escaping in msIdent.
func TestMsIdent(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Order ID":  "[Order ID]",
		"a]b":       "[a]]b]",
		"sub_categ": "[sub_categ]",
	}
	for in, want := range tests {
		if got := msIdent(in); got != want {
			t.Errorf("msIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMsFQN(t *testing.T) {
	t.Parallel()

	if got := msFQN("dbo.full_data"); got != "[dbo].[full_data]" {
		t.Fatalf("msFQN = %q", got)
	}
	if got := msFQN("full_data"); got != "[full_data]" {
		t.Fatalf("msFQN = %q", got)
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	want := map[frame.Kind]string{
		frame.String: "NVARCHAR(4000)",
		frame.Int:    "BIGINT",
		frame.Float:  "FLOAT",
		frame.Date:   "DATE",
		frame.Bool:   "BIT",
	}
	for k, w := range want {
		if got := (dialect{}).MapType(k); got != w {
			t.Errorf("MapType(%s) = %s, want %s", k, got, w)
		}
	}
}

// --- Test driver plumbing for exercising Exec and CopyFrom without a real DB --

type errDriver struct{}

type errConn struct{}

type errTx struct{}

func (d *errDriver) Open(name string) (driver.Conn, error) {
	return &errConn{}, nil
}

// Prepare is not expected to be called in our tests; if it is, fail loudly.
func (c *errConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("unexpected Prepare call")
}

func (c *errConn) Close() error { return nil }

// Begin is required by driver.Conn; database/sql calls BeginTx when available.
func (c *errConn) Begin() (driver.Tx, error) {
	return nil, errors.New("begin (legacy) should not be called")
}

// BeginTx implements driver.ConnBeginTx and always fails, to exercise the
// error path in Repository.CopyFrom.
func (c *errConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("begin failed")
}

// ExecContext implements driver.ExecerContext and always fails, to exercise
// the error path in Repository.Exec.
func (c *errConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec failed")
}

// QueryContext implements driver.QueryerContext and always fails, to exercise
// the error path in Repository.Query.
func (c *errConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return nil, errors.New("query failed")
}

func (t *errTx) Commit() error   { return nil }
func (t *errTx) Rollback() error { return nil }

var (
	testDriverOnce sync.Once
	testDriverName = "mssql_test_err"
)

// openErrDB registers and opens a test driver that fails BeginTx and ExecContext.
func openErrDB(t *testing.T) *sql.DB {
	t.Helper()

	testDriverOnce.Do(func() {
		sql.Register(testDriverName, &errDriver{})
	})
	db, err := sql.Open(testDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open(%q) error = %v", testDriverName, err)
	}
	return db
}

// --- Tests ---

// TestExecPropagatesError verifies that Exec forwards errors from the underlying
// *sql.DB.ExecContext call when the driver returns an error.
func TestExecPropagatesError(t *testing.T) {
	t.Parallel()

	r := &Repository{db: openErrDB(t)}

	err := r.Exec(context.Background(), "DROP TABLE [t]")
	if err == nil || !strings.Contains(err.Error(), "exec failed") {
		t.Fatalf("Exec() error = %v, want it to contain %q", err, "exec failed")
	}
}

func TestQueryPropagatesError(t *testing.T) {
	t.Parallel()

	r := &Repository{db: openErrDB(t)}

	_, err := r.Query(context.Background(), "SELECT 1")
	if err == nil || !strings.Contains(err.Error(), "query failed") {
		t.Fatalf("Query() error = %v, want it to contain %q", err, "query failed")
	}
}

// TestCopyFromBeginTxError verifies that CopyFrom surfaces errors from
// db.BeginTx before any bulk-copy logic runs.
func TestCopyFromBeginTxError(t *testing.T) {
	t.Parallel()

	r := &Repository{db: openErrDB(t)}
	rows := [][]any{{int64(1), "alice"}, {int64(2), "bob"}}

	n, err := r.CopyFrom(context.Background(), "dbo.t", []string{"id", "name"}, rows)
	if err == nil {
		t.Fatalf("CopyFrom() error = nil, want non-nil when BeginTx fails")
	}
	if n != 0 {
		t.Fatalf("CopyFrom() rows = %d, want 0 on error", n)
	}
	if !strings.Contains(err.Error(), "begin tx:") {
		t.Fatalf("CopyFrom() error = %q, want it wrapped with 'begin tx:'", err.Error())
	}
}

func BenchmarkMsIdent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = msIdent("Customer Name")
	}
}
