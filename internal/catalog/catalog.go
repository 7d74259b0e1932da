// Package catalog is the metadata-catalog boundary: table lookup with
// predicate pushdown for the batch normalizer, and database/table upserts with
// schema evolution for the event normalizer.
//
// Glue implements Catalog against the AWS Glue Data Catalog. Memory is an
// in-process implementation for tests and local runs, and Disabled reports
// every table as absent so that the batch job always takes its raw-path read.
package catalog

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrTableNotFound is returned by GetTable when the table does not exist.
// TableExists folds it into a false result.
var ErrTableNotFound = errors.New("catalog: table not found")

// Column is one table column with its catalog (Hive) type name, e.g.
// "string", "bigint", "boolean".
type Column struct {
	Name string
	Type string
}

// Table is the subset of catalog table metadata the pipelines use.
type Table struct {
	Database string
	Name     string
	// Location is the storage prefix of the table data.
	Location string
	// Classification is the data format, e.g. "json", "csv", "parquet".
	Classification string
	Columns        []Column
	PartitionKeys  []Column
}

// PartitionKeyIndex returns the index of name among the partition keys, or -1.
func (t *Table) PartitionKeyIndex(name string) int {
	for i, k := range t.PartitionKeys {
		if strings.EqualFold(k.Name, name) {
			return i
		}
	}
	return -1
}

// Partition is one partition of a partitioned table.
type Partition struct {
	Values   []string
	Location string
}

// UpsertMode controls how UpsertTable treats an existing table's columns.
type UpsertMode int

const (
	// Evolve keeps existing columns and appends newly observed ones. A type
	// change on an existing column is an error.
	Evolve UpsertMode = iota
	// Replace sets the column list to exactly the incoming columns.
	Replace
)

// Catalog is the metadata service contract.
type Catalog interface {
	// TableExists reports whether db.table exists. Errors other than "not
	// found" are returned unchanged.
	TableExists(ctx context.Context, db, table string) (bool, error)
	// GetTable returns table metadata or ErrTableNotFound.
	GetTable(ctx context.Context, db, table string) (*Table, error)
	// Partitions lists the partitions matching expression (empty means all).
	Partitions(ctx context.Context, db, table, expression string) ([]Partition, error)
	// EnsureDatabase creates db if it does not exist. created is false when
	// the database was already there.
	EnsureDatabase(ctx context.Context, db string) (created bool, err error)
	// UpsertTable creates t or updates its columns according to mode, and
	// returns the names of columns added to an existing table.
	UpsertTable(ctx context.Context, t Table, mode UpsertMode) (added []string, err error)
}

// MergeColumns appends incoming columns missing from existing. Names compare
// case-insensitively. A column present in both with a different type yields
// an error naming the column.
func MergeColumns(existing, incoming []Column) (merged []Column, added []string, err error) {
	idx := make(map[string]Column, len(existing))
	merged = append(merged, existing...)
	for _, c := range existing {
		idx[strings.ToLower(c.Name)] = c
	}
	for _, c := range incoming {
		prev, ok := idx[strings.ToLower(c.Name)]
		if !ok {
			merged = append(merged, c)
			added = append(added, c.Name)
			idx[strings.ToLower(c.Name)] = c
			continue
		}
		if !strings.EqualFold(prev.Type, c.Type) {
			return nil, nil, errors.Newf(
				"catalog: schema change detected on column %q: %s -> %s", c.Name, prev.Type, c.Type)
		}
	}
	return merged, added, nil
}

// Disabled is a Catalog with no tables. Writes are rejected.
type Disabled struct{}

var errDisabled = errors.New("catalog: disabled")

func (Disabled) TableExists(context.Context, string, string) (bool, error) { return false, nil }

func (Disabled) GetTable(context.Context, string, string) (*Table, error) {
	return nil, ErrTableNotFound
}

func (Disabled) Partitions(context.Context, string, string, string) ([]Partition, error) {
	return nil, ErrTableNotFound
}

func (Disabled) EnsureDatabase(context.Context, string) (bool, error) { return false, errDisabled }

func (Disabled) UpsertTable(context.Context, Table, UpsertMode) ([]string, error) {
	return nil, errDisabled
}
