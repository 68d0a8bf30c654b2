package ddl

import "dmart/internal/frame"

// ColumnDef describes a single column of a scratch table.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, DOUBLE PRECISION)
type ColumnDef struct {
	Name    string
	SQLType string
}

// TableDef holds the table name (FQN) and an ordered list of columns. The FQN
// may be in dotted form (e.g., "schema.table"); each segment is quoted by the
// renderer.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect is what a backend contributes to DDL and query text: identifier
// quoting and the SQL type stored for each frame kind.
type Dialect interface {
	Name() string
	Quote(ident string) string
	MapType(k frame.Kind) string
}

// FromColumns builds a TableDef for frame columns using d's type mapping.
func FromColumns(fqn string, cols []frame.Column, d Dialect) TableDef {
	t := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(cols))}
	for i, c := range cols {
		t.Columns[i] = ColumnDef{Name: c.Name, SQLType: d.MapType(c.Kind)}
	}
	return t
}
