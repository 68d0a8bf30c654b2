// Package frame implements the immutable, typed tabular dataset that flows
// through the pipeline: an ordered list of named, typed columns plus rows of
// cells. A cell is nil (missing) or a value of the column kind:
//
//	String -> string
//	Int    -> int64
//	Float  -> float64
//	Date   -> time.Time (UTC, midnight)
//	Bool   -> bool
//
// Frames are never mutated after construction. Every transformation in the
// pipeline builds a new Frame; accessors that expose slices return copies.
package frame

import (
	"fmt"
	"strings"
)

// Kind is the logical type of a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Date
	Bool
)

// String returns the lower-case name used in logs and config.
func (k Kind) String() string {
	switch k {
	case Int:
		return "integer"
	case Float:
		return "real"
	case Date:
		return "date"
	case Bool:
		return "boolean"
	default:
		return "text"
	}
}

// Numeric reports whether k holds numbers (Int or Float).
func (k Kind) Numeric() bool { return k == Int || k == Float }

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Frame is an immutable tabular dataset.
type Frame struct {
	name  string
	cols  []Column
	index map[string]int
	rows  [][]any
}

// New builds a Frame from columns and rows. Column names must be unique and
// every row must have exactly len(cols) cells. The slices are owned by the
// returned Frame; callers must not modify them afterwards.
func New(name string, cols []Column, rows [][]any) (*Frame, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("frame %s: column %d has an empty name", name, i)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("frame %s: duplicate column %q", name, c.Name)
		}
		index[c.Name] = i
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("frame %s: row %d has %d cells, want %d", name, i, len(r), len(cols))
		}
	}
	return &Frame{name: name, cols: cols, index: index, rows: rows}, nil
}

// MustNew is New for tests and static fixtures; it panics on error.
func MustNew(name string, cols []Column, rows [][]any) *Frame {
	f, err := New(name, cols, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the dataset name (e.g. "sales", "full_data").
func (f *Frame) Name() string { return f.name }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Columns returns a copy of the column list.
func (f *Frame) Columns() []Column {
	out := make([]Column, len(f.cols))
	copy(out, f.cols)
	return out
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column.
func (f *Frame) Index(name string) (int, bool) {
	i, ok := f.index[name]
	return i, ok
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// ColumnAt returns the column at position j.
func (f *Frame) ColumnAt(j int) Column { return f.cols[j] }

// Value returns the cell at row i, column j.
func (f *Frame) Value(i, j int) any { return f.rows[i][j] }

// Row returns a copy of row i.
func (f *Frame) Row(i int) []any {
	out := make([]any, len(f.rows[i]))
	copy(out, f.rows[i])
	return out
}

// Rename returns a frame with the same contents under a new dataset name.
// Rows are shared; this is safe because frames are never mutated.
func (f *Frame) Rename(name string) *Frame {
	return &Frame{name: name, cols: f.cols, index: f.index, rows: f.rows}
}

// WithColumns returns a frame sharing f's rows but with a new column list of
// the same width. It is used by transforms that only touch the schema
// (renames) to avoid copying every row.
func (f *Frame) WithColumns(cols []Column) (*Frame, error) {
	if len(cols) != len(f.cols) {
		return nil, fmt.Errorf("frame %s: WithColumns got %d columns, want %d", f.name, len(cols), len(f.cols))
	}
	nf, err := New(f.name, cols, nil)
	if err != nil {
		return nil, err
	}
	nf.rows = f.rows
	return nf, nil
}

// MapColumns returns a new frame where column j is replaced by fns[j] applied
// to every cell, for each j present in fns. kinds optionally overrides the
// kind of a mapped column. Rows that need no change still get copied so the
// result never aliases f's row slices.
func (f *Frame) MapColumns(fns map[int]func(any) any, kinds map[int]Kind) *Frame {
	cols := f.Columns()
	for j, k := range kinds {
		cols[j].Kind = k
	}
	rows := make([][]any, len(f.rows))
	for i, r := range f.rows {
		nr := make([]any, len(r))
		copy(nr, r)
		for j, fn := range fns {
			nr[j] = fn(nr[j])
		}
		rows[i] = nr
	}
	return &Frame{name: f.name, cols: cols, index: f.index, rows: rows}
}

// String renders a short description for logs.
func (f *Frame) String() string {
	return fmt.Sprintf("%s(rows=%d cols=%d)", f.name, len(f.rows), len(f.cols))
}
