// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render the CREATE TABLE and DROP TABLE statements used for scratch
// tables.
//
// The package does not know any SQL dialect itself. Identifier quoting and
// type names come from a Dialect supplied by the storage backend, so the same
// renderer serves SQLite, Postgres and SQL Server.
//
// Every column is rendered nullable: cleaned data may still carry nulls in
// columns that were not filled.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty; each dotted segment is quoted with d.Quote.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - The resulting statement has the form:
//
//     CREATE TABLE <FQN> (
//     <col1> <type1>,
//     <col2> <type2>
//     )
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
		cols = append(cols, d.Quote(c.Name)+" "+typ)
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		QuoteFQN(fqn, d),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE for fqn.
func BuildDropTableSQL(fqn string, d Dialect) (string, error) {
	fqn = strings.TrimSpace(fqn)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	return "DROP TABLE " + QuoteFQN(fqn, d), nil
}

// QuoteFQN quotes each dotted segment of name: main.events -> "main"."events".
// Column names are never passed through here since they may contain dots.
func QuoteFQN(name string, d Dialect) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}
