package sqlite

import (
	"strings"

	"dmart/internal/ddl"
	"dmart/internal/frame"
)

// dialect maps frame kinds onto SQLite's storage classes.
type dialect struct{}

var _ ddl.Dialect = dialect{}

func (dialect) Name() string { return "sqlite" }

// Quote uses double-quoted identifiers, escaping embedded quotes.
func (dialect) Quote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// MapType prefers canonical affinities:
//   - integer      -> INTEGER
//   - boolean      -> INTEGER (0/1)
//   - real         -> REAL
//   - date         -> TEXT (ISO-8601, so ordering and grouping still work)
//   - others       -> TEXT
func (dialect) MapType(k frame.Kind) string {
	switch k {
	case frame.Int, frame.Bool:
		return "INTEGER"
	case frame.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}
