package mysql

import (
	"context"
	"strings"

	"ytetl/internal/ddl"
	"ytetl/internal/storage"
)

var dialect = ddl.Dialect{
	Name:        "mysql",
	Quote:       func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
	IfNotExists: true,
}

// TEXT cannot be a primary key in MySQL, hence VARCHAR for ids.
var columnTypes = ddl.ColumnTypes{
	ID:    "VARCHAR(64)",
	Short: "VARCHAR(255)",
	Text:  "TEXT",
	Int:   "BIGINT",
	Time:  "DATETIME(6)",
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
