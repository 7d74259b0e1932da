// Package storage is the backend-agnostic entry point for the SQL databases
// that hold job run records.
//
// Backends (postgres, sqlite, mysql, mssql) register a Factory and a
// DDLBootstrapper for their kind at init time. Callers blank-import
// ytetl/internal/storage/all and then work only against Repository:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:runs.db", Table: "job_runs"})
//	if err != nil { ... }
//	defer repo.Close()
//	if err := storage.EnsureTable(ctx, "sqlite", repo, "job_runs"); err != nil { ... }
//
// Statements are written with Placeholder so that the same SQL text runs on
// every backend.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "postgres".
	Kind string
	// DSN is handed to the driver unchanged.
	DSN string
	// Table is the ledger table, optionally schema-qualified.
	Table string
}

// Row is the single-row result of QueryRow. Scan returns the backend's
// no-rows error when nothing matched; see IsNoRows.
type Row interface {
	Scan(dest ...any) error
}

// Repository is the minimal SQL surface the run ledger needs.
type Repository interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) error
	// QueryRow runs a query expected to return at most one row.
	QueryRow(ctx context.Context, query string, args ...any) Row
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// Close releases the underlying pool.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository via the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if err := ValidateTableName(cfg.Table); err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName accepts "table" or "schema.table" made of plain
// identifiers. Table names are interpolated into SQL, so nothing else is
// allowed.
func ValidateTableName(name string) error {
	if !identRE.MatchString(name) {
		return fmt.Errorf("storage: invalid table name %q", name)
	}
	return nil
}
