package storage

import (
	"context"
	"fmt"

	"dmart/internal/ddl"
	"dmart/internal/frame"
)

// CreateTable renders CREATE TABLE for cols in repo's dialect and applies it.
func CreateTable(ctx context.Context, repo Repository, table string, cols []frame.Column) error {
	d := repo.Dialect()
	stmt, err := ddl.BuildCreateTableSQL(ddl.FromColumns(table, cols, d), d)
	if err != nil {
		return fmt.Errorf("build create table: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("%s: create table %s: %w", d.Name(), table, err)
	}
	return nil
}

// DropTable removes table. It is used for scratch-table cleanup and so takes
// its own context: the run context may already be cancelled.
func DropTable(ctx context.Context, repo Repository, table string) error {
	d := repo.Dialect()
	stmt, err := ddl.BuildDropTableSQL(table, d)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("%s: drop table %s: %w", d.Name(), table, err)
	}
	return nil
}
