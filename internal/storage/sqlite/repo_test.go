package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"ytetl/internal/storage"
)

func newMemRepo(tb testing.TB) storage.Repository {
	tb.Helper()
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:", Table: "job_runs"})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(repo.Close)
	return repo
}

/*
TestEnsureTable_Idempotent creates the ledger table twice and checks the
schema recorded in sqlite_master contains every ledger column.
*/
func TestEnsureTable_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(t)

	for i := 0; i < 2; i++ {
		if err := storage.EnsureTable(ctx, "sqlite", repo, "job_runs"); err != nil {
			t.Fatalf("EnsureTable #%d: %v", i+1, err)
		}
	}

	var ddlText string
	if err := repo.QueryRow(ctx, "SELECT sql FROM sqlite_master WHERE name = ?", "job_runs").Scan(&ddlText); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	for _, col := range []string{"run_id", "job_name", "status", "started_at", "finished_at", "rows_read", "rows_written", "partitions", "error"} {
		if !strings.Contains(ddlText, `"`+col+`"`) {
			t.Fatalf("schema missing %s:\n%s", col, ddlText)
		}
	}
}

/*
TestExecAndQueryRow round-trips a row, including a DATETIME value, through
the shared database/sql repository.
*/
func TestExecAndQueryRow(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(t)
	if err := EnsureTable(ctx, repo, "job_runs"); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ins := "INSERT INTO job_runs (run_id, job_name, status, started_at) VALUES (" +
		repo.Placeholder(1) + ", " + repo.Placeholder(2) + ", " + repo.Placeholder(3) + ", " + repo.Placeholder(4) + ")"
	if err := repo.Exec(ctx, ins, "r1", "daily", "running", started); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var status string
	var got time.Time
	if err := repo.QueryRow(ctx, "SELECT status, started_at FROM job_runs WHERE run_id = ?", "r1").Scan(&status, &got); err != nil {
		t.Fatalf("select: %v", err)
	}
	if status != "running" || !got.Equal(started) {
		t.Fatalf("got (%s, %v), want (running, %v)", status, got, started)
	}

	err := repo.QueryRow(ctx, "SELECT status FROM job_runs WHERE run_id = ?", "nope").Scan(&status)
	if !storage.IsNoRows(err) {
		t.Fatalf("want no-rows error, got %v", err)
	}
}

// TestNewRepository_EmptyDSN checks the factory rejects an empty DSN.
func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
