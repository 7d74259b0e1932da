package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLRepository implements Repository over database/sql. The sqlite, mysql
// and mssql backends share it and differ only in Bind and Name.
type SQLRepository struct {
	DB *sql.DB
	// Name prefixes error messages, e.g. "sqlite".
	Name string
	// Bind renders the n-th placeholder. Nil means "?".
	Bind func(n int) string
}

var _ Repository = (*SQLRepository)(nil)

// Exec runs query. Blank statements are ignored.
func (r *SQLRepository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", r.Name, err)
	}
	return nil
}

// QueryRow runs query and returns its first row.
func (r *SQLRepository) QueryRow(ctx context.Context, query string, args ...any) Row {
	return r.DB.QueryRowContext(ctx, query, args...)
}

// Placeholder implements Repository.
func (r *SQLRepository) Placeholder(n int) string {
	if r.Bind == nil {
		return "?"
	}
	return r.Bind(n)
}

// Close closes the pool.
func (r *SQLRepository) Close() { _ = r.DB.Close() }

// ErrNoRows is matched by IsNoRows alongside driver-specific no-row errors.
var ErrNoRows = sql.ErrNoRows

var noRowsChecks []func(error) bool

// RegisterNoRows lets a backend whose driver does not use sql.ErrNoRows
// teach IsNoRows its own sentinel. Call from init only.
func RegisterNoRows(fn func(error) bool) { noRowsChecks = append(noRowsChecks, fn) }

// IsNoRows reports whether err means QueryRow matched nothing.
func IsNoRows(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	for _, fn := range noRowsChecks {
		if fn(err) {
			return true
		}
	}
	return false
}
