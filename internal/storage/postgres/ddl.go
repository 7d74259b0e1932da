package postgres

import (
	"context"

	"ytetl/internal/ddl"
	"ytetl/internal/storage"
)

var dialect = ddl.Dialect{Name: "postgres", Quote: ddl.DoubleQuote, IfNotExists: true}

var columnTypes = ddl.ColumnTypes{
	ID:    "TEXT",
	Short: "TEXT",
	Text:  "TEXT",
	Int:   "BIGINT",
	Time:  "TIMESTAMPTZ",
}

// BuildCreateTableSQL renders the ledger table DDL for table.
func BuildCreateTableSQL(table string) (string, error) {
	return ddl.BuildCreateTableSQL(ddl.JobRuns(table, columnTypes), dialect)
}

// EnsureTable creates the ledger table if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	stmt, err := BuildCreateTableSQL(table)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
