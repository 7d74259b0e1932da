package mssql

import (
	"context"
	"fmt"
	"strings"

	"ytetl/internal/ddl"
	"ytetl/internal/storage"
)

// SQL Server has no CREATE TABLE IF NOT EXISTS; the statement is guarded by
// OBJECT_ID instead.
var dialect = ddl.Dialect{
	Name:  "mssql",
	Quote: func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
	Guard: func(fqn, stmt string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", strings.ReplaceAll(fqn, "'", "''"), stmt)
	},
}

var columnTypes = ddl.ColumnTypes{
	ID:    "NVARCHAR(64)",
	Short: "NVARCHAR(256)",
	Text:  "NVARCHAR(MAX)",
	Int:   "BIGINT",
	Time:  "DATETIME2(6)",
}

// BuildCreateTableSQL renders the guarded ledger table DDL for table.
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
