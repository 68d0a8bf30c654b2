package postgres

import (
	"strings"

	"dmart/internal/ddl"
	"dmart/internal/frame"
)

type dialect struct{}

var _ ddl.Dialect = dialect{}

func (dialect) Name() string { return "postgres" }

// Quote delegates to pgIdent.
func (dialect) Quote(id string) string { return pgIdent(id) }

// MapType maps frame kinds onto Postgres types.
//
//	integer -> BIGINT
//	real    -> DOUBLE PRECISION
//	boolean -> BOOLEAN
//	date    -> DATE
//	text    -> TEXT
func (dialect) MapType(k frame.Kind) string {
	switch k {
	case frame.Int:
		return "BIGINT"
	case frame.Float:
		return "DOUBLE PRECISION"
	case frame.Bool:
		return "BOOLEAN"
	case frame.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// pgIdent safely quotes an identifier, escaping embedded double quotes.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// splitFQN turns "schema.table" into pgx identifier parts.
func splitFQN(name string) []string {
	parts := strings.Split(name, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
