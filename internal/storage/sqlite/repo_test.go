package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"dmart/internal/frame"
	"dmart/internal/storage"
)

func newRepo(tb testing.TB) *wrappedRepo {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{})
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(closeFn)
	return &wrappedRepo{Repository: r}
}

var scratchCols = []frame.Column{
	{Name: "Order ID", Kind: frame.String},
	{Name: "Quantity", Kind: frame.Int},
	{Name: "Sales", Kind: frame.Float},
	{Name: "Order Date", Kind: frame.Date},
	{Name: "Returned", Kind: frame.Bool},
}

// TestCreateCopyQuery round-trips frame cells through a scratch table.
func TestCreateCopyQuery(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if err := storage.CreateTable(ctx, r, "scratch", scratchCols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	day := time.Date(2017, 11, 8, 0, 0, 0, 0, time.UTC)
	rows := [][]any{
		{"O1", int64(2), 100.5, day, true},
		{"O2", nil, nil, nil, nil},
	}
	n, err := r.CopyFrom(ctx, "scratch", frameNames(scratchCols), rows)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted=%d want 2", n)
	}

	got, err := r.Query(ctx, `SELECT "Order ID", "Quantity", "Sales", "Order Date", "Returned" FROM "scratch" ORDER BY "Order ID"`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d want 2", len(got))
	}
	first := got[0]
	if first[0] != "O1" || first[1] != int64(2) || first[2] != 100.5 {
		t.Fatalf("first row = %#v", first)
	}
	if d, ok := frame.Coerce(first[3], frame.Date).(time.Time); !ok || !d.Equal(day) {
		t.Fatalf("date came back as %#v", first[3])
	}
	if b := frame.Coerce(first[4], frame.Bool); b != true {
		t.Fatalf("bool came back as %#v", first[4])
	}
	for j, v := range got[1][1:] {
		if v != nil {
			t.Fatalf("null col %d came back as %#v", j+1, v)
		}
	}

	if err := storage.DropTable(ctx, r, "scratch"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := r.Query(ctx, `SELECT 1 FROM "scratch"`); err == nil {
		t.Fatalf("table should be gone")
	}
}

func TestCopyFrom_Validation(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if _, err := r.CopyFrom(ctx, "t", nil, [][]any{{1}}); err == nil {
		t.Fatalf("expected error for empty columns")
	}
	if n, err := r.CopyFrom(ctx, "t", []string{"a"}, nil); err != nil || n != 0 {
		t.Fatalf("empty rows: n=%d err=%v", n, err)
	}
	if err := r.Exec(ctx, `CREATE TABLE "t" ("a" INTEGER, "b" TEXT)`); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	_, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{int64(1), "x"}, {int64(2)}})
	if err == nil || !strings.Contains(err.Error(), "row length") {
		t.Fatalf("want row length error, got %v", err)
	}
	got, err := r.Query(ctx, `SELECT COUNT(*) FROM "t"`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0][0] != int64(0) {
		t.Fatalf("failed copy must roll back, count=%v", got[0][0])
	}
}

func TestExec_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	if err := newRepo(t).Exec(context.Background(), "  "); err != nil {
		t.Fatalf("Exec: %v", err)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	if got := (dialect{}).Quote(`we"ird`); got != `"we""ird"` {
		t.Fatalf("Quote = %s", got)
	}
}

func frameNames(cols []frame.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func BenchmarkCopyFrom(b *testing.B) {
	r := newRepo(b)
	ctx := context.Background()
	if err := storage.CreateTable(ctx, r, "bench", scratchCols); err != nil {
		b.Fatal(err)
	}
	day := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{"O", int64(i), 1.5, day, false}
	}
	cols := frameNames(scratchCols)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.CopyFrom(ctx, "bench", cols, rows); err != nil {
			b.Fatal(err)
		}
	}
}
