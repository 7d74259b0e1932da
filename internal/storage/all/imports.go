// Package all wires every built-in ledger backend into the storage factory.
//
// Importing it for side effects makes the kinds "postgres", "sqlite",
// "mysql" and "mssql" available to storage.New and storage.EnsureTable.
// A binary that needs only a subset can import those backends directly.
package all

import (
	_ "ytetl/internal/storage/mssql"
	_ "ytetl/internal/storage/mysql"
	_ "ytetl/internal/storage/postgres"
	_ "ytetl/internal/storage/sqlite"
)
