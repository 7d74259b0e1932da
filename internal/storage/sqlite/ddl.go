package sqlite

import (
	"context"

	"ytetl/internal/ddl"
	"ytetl/internal/storage"
)

var dialect = ddl.Dialect{Name: "sqlite", Quote: ddl.DoubleQuote, IfNotExists: true}

var columnTypes = ddl.ColumnTypes{
	ID:    "TEXT",
	Short: "TEXT",
	Text:  "TEXT",
	Int:   "INTEGER",
	Time:  "DATETIME",
}

// EnsureTable creates the ledger table if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	stmt, err := ddl.BuildCreateTableSQL(ddl.JobRuns(table, columnTypes), dialect)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
