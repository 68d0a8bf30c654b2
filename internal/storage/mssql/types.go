package mssql

import (
	"strings"

	"dmart/internal/ddl"
	"dmart/internal/frame"
)

type dialect struct{}

var _ ddl.Dialect = dialect{}

func (dialect) Name() string { return "mssql" }

// Quote delegates to msIdent.
func (dialect) Quote(id string) string { return msIdent(id) }

// MapType maps frame kinds onto SQL Server types. Text is bounded because
// NVARCHAR(MAX) columns cannot appear in GROUP BY.
func (dialect) MapType(k frame.Kind) string {
	switch k {
	case frame.Int:
		return "BIGINT"
	case frame.Float:
		return "FLOAT"
	case frame.Bool:
		return "BIT"
	case frame.Date:
		return "DATE"
	default:
		return "NVARCHAR(4000)"
	}
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.full_data" to
// "[dbo].[full_data]". If no dot is present, returns a single quoted ident.
func msFQN(name string) string { return ddl.QuoteFQN(name, dialect{}) }
