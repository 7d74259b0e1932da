// Package jobrun keeps a ledger of batch job runs in a SQL table.
//
// A run is inserted as "running" when the job starts and updated exactly once
// when it ends, to "succeeded" with its counters or to "failed" with the
// error text. The ledger is optional: Open returns a nil *Ledger for kind
// "none", and every method on a nil *Ledger is a no-op.
package jobrun

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ytetl/internal/config"
	"ytetl/internal/storage"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("jobrun: run not found")

// Run is one row of the ledger.
type Run struct {
	ID          string
	Job         string
	Status      Status
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running
	SourcePath  string
	RowsRead    int64
	RowsWritten int64
	Partitions  int
	Error       string
}

// Summary carries the counters recorded on success.
type Summary struct {
	SourcePath  string
	RowsRead    int64
	RowsWritten int64
	Partitions  int
}

// Ledger records runs through a storage.Repository.
type Ledger struct {
	repo  storage.Repository
	table string

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

// New wraps an open repository whose ledger table already exists.
func New(repo storage.Repository, table string) *Ledger {
	return &Ledger{
		repo:  repo,
		table: table,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.NewString() },
	}
}

// Open connects to the configured backend and creates the ledger table when
// missing. Kind "none" (or empty) yields a nil ledger and no error.
func Open(ctx context.Context, cfg config.Ledger) (*Ledger, error) {
	if cfg.Kind == "" || cfg.Kind == "none" {
		return nil, nil
	}
	table := cfg.Table
	if table == "" {
		table = "job_runs"
	}
	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.DSN, Table: table})
	if err != nil {
		return nil, errors.Wrapf(err, "jobrun: open %s ledger", cfg.Kind)
	}
	if err := storage.EnsureTable(ctx, cfg.Kind, repo, table); err != nil {
		repo.Close()
		return nil, errors.Wrap(err, "jobrun: ensure ledger table")
	}
	return New(repo, table), nil
}

// Close releases the repository.
func (l *Ledger) Close() {
	if l == nil {
		return
	}
	l.repo.Close()
}

func (l *Ledger) ph(n int) string { return l.repo.Placeholder(n) }

// Init inserts a running row for job and returns it. On a nil ledger it
// returns a run with a fresh id that is not persisted.
func (l *Ledger) Init(ctx context.Context, job string) (*Run, error) {
	if l == nil {
		return &Run{ID: uuid.NewString(), Job: job, Status: StatusRunning, StartedAt: time.Now().UTC()}, nil
	}
	run := &Run{ID: l.NewID(), Job: job, Status: StatusRunning, StartedAt: l.Now()}
	q := fmt.Sprintf(
		"INSERT INTO %s (run_id, job_name, status, started_at, rows_read, rows_written, partitions) VALUES (%s, %s, %s, %s, 0, 0, 0)",
		l.table, l.ph(1), l.ph(2), l.ph(3), l.ph(4),
	)
	if err := l.repo.Exec(ctx, q, run.ID, run.Job, string(run.Status), run.StartedAt); err != nil {
		return nil, errors.Wrapf(err, "jobrun: init run for %s", job)
	}
	return run, nil
}

// Commit marks run as succeeded with s.
func (l *Ledger) Commit(ctx context.Context, run *Run, s Summary) error {
	run.Status = StatusSucceeded
	run.SourcePath = s.SourcePath
	run.RowsRead = s.RowsRead
	run.RowsWritten = s.RowsWritten
	run.Partitions = s.Partitions
	if l == nil {
		run.FinishedAt = time.Now().UTC()
		return nil
	}
	run.FinishedAt = l.Now()
	q := fmt.Sprintf(
		"UPDATE %s SET status = %s, finished_at = %s, source_path = %s, rows_read = %s, rows_written = %s, partitions = %s WHERE run_id = %s",
		l.table, l.ph(1), l.ph(2), l.ph(3), l.ph(4), l.ph(5), l.ph(6), l.ph(7),
	)
	err := l.repo.Exec(ctx, q, string(run.Status), run.FinishedAt, s.SourcePath, s.RowsRead, s.RowsWritten, int64(s.Partitions), run.ID)
	return errors.Wrapf(err, "jobrun: commit run %s", run.ID)
}

// Fail marks run as failed with cause's message.
func (l *Ledger) Fail(ctx context.Context, run *Run, cause error) error {
	run.Status = StatusFailed
	if cause != nil {
		run.Error = cause.Error()
	}
	if l == nil {
		run.FinishedAt = time.Now().UTC()
		return nil
	}
	run.FinishedAt = l.Now()
	q := fmt.Sprintf(
		"UPDATE %s SET status = %s, finished_at = %s, error = %s WHERE run_id = %s",
		l.table, l.ph(1), l.ph(2), l.ph(3), l.ph(4),
	)
	err := l.repo.Exec(ctx, q, string(run.Status), run.FinishedAt, run.Error, run.ID)
	return errors.Wrapf(err, "jobrun: fail run %s", run.ID)
}

// Get loads a run by id.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	if l == nil {
		return Run{}, ErrNotFound
	}
	q := fmt.Sprintf(
		"SELECT run_id, job_name, status, started_at, finished_at, source_path, rows_read, rows_written, partitions, error FROM %s WHERE run_id = %s",
		l.table, l.ph(1),
	)
	var (
		r          Run
		status     string
		finished   sql.NullTime
		source     sql.NullString
		partitions int64
		errText    sql.NullString
	)
	err := l.repo.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.Job, &status, &r.StartedAt, &finished, &source,
		&r.RowsRead, &r.RowsWritten, &partitions, &errText,
	)
	if storage.IsNoRows(err) {
		return Run{}, errors.Mark(errors.Newf("jobrun: run %s not found", id), ErrNotFound)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "jobrun: get run %s", id)
	}
	r.Status = Status(status)
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	r.SourcePath = source.String
	r.Partitions = int(partitions)
	r.Error = errText.String
	return r, nil
}
