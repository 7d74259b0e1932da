// Package sqlite implements a SQLite-backed storage.Repository using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ytetl/internal/storage"

	_ "modernc.org/sqlite"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.
	// "file:runs.db?_pragma=busy_timeout(5000)" or ":memory:".
	DSN string
}

// NewRepository opens the database and returns the repository plus a close
// function.
//
// SQLite allows a single writer; the pool is capped at one connection, which
// also keeps ":memory:" databases alive for the lifetime of the repository.
func NewRepository(ctx context.Context, cfg Config) (*storage.SQLRepository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	r := &storage.SQLRepository{DB: db, Name: "sqlite"}
	return r, func() { db.Close() }, nil
}
