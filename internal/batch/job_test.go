package batch

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytetl/internal/catalog"
	"ytetl/internal/config"
	"ytetl/internal/jobrun"
	"ytetl/internal/objstore"
	"ytetl/internal/sink"
	_ "ytetl/internal/storage/sqlite"
)

const rawStats = `{"video_id":"v1","trending_date":"17.14.11","title":"A","channel_title":"C","category_id":"22","views":"1500","likes":10,"dislikes":1,"comment_count":"3","comments_disabled":"False","ratings_disabled":false,"video_error_or_removed":false,"tags":["x","y"],"region":"ca","extra":"dropped"}
{"video_id":"v2","title":"B","views":7,"region":"us"}
{"video_id":"v3","title":"C","views":8,"region":"in"}
{"video_id":"v4","title":"D","views":9,"region":"ca"}`

func testConfig() config.Batch {
	cfg := config.DefaultBatch()
	cfg.JobName = "daily"
	cfg.Catalog = "none"
	cfg.RawPath = "s3://landing/youtube/raw_statistics/"
	cfg.CleansedPath = "s3://cleansed/youtube/raw_statistics/"
	return cfg
}

func openLedger(t *testing.T) *jobrun.Ledger {
	t.Helper()
	l, err := jobrun.Open(context.Background(), config.Ledger{Kind: "sqlite", DSN: ":memory:", Table: "job_runs"})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

/*
TestRun_RawPathToPartitions exercises the whole batch path on the raw-path
fallback: the "in" row is filtered out, the two ca rows share one file, and
the ledger records a succeeded run with the counters.
*/
func TestRun_RawPathToPartitions(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://landing/youtube/raw_statistics/2024/a.json"), []byte(rawStats))
	ledger := openLedger(t)

	job, err := New(testConfig(), store, catalog.Disabled{}, ledger, zerolog.Nop())
	require.NoError(t, err)

	sum, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "raw-path", string(sum.Path))
	assert.Equal(t, 3, sum.RowsRead)
	assert.Equal(t, 3, sum.RowsWritten)
	require.Len(t, sum.Files, 2)

	var keys []string
	for k := range store.Snapshot() {
		if strings.HasPrefix(k, "s3://cleansed/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"s3://cleansed/youtube/raw_statistics/region=ca/part-00000-" + sum.RunID + ".c000.snappy.parquet",
		"s3://cleansed/youtube/raw_statistics/region=us/part-00000-" + sum.RunID + ".c000.snappy.parquet",
	}, keys)
	for _, f := range sum.Files {
		assert.NotEmpty(t, store.Meta(f.URI)[sink.ChecksumKey])
	}

	run, err := ledger.Get(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, jobrun.StatusSucceeded, run.Status)
	assert.EqualValues(t, 3, run.RowsWritten)
	assert.Equal(t, 2, run.Partitions)
	assert.Equal(t, "raw-path:s3://landing/youtube/raw_statistics/", run.SourcePath)
}

// TestRun_WriteFailureRecorded aborts on the first failed put and marks the
// run failed.
func TestRun_WriteFailureRecorded(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://landing/youtube/raw_statistics/a.json"), []byte(rawStats))
	store.FailPut = func(objstore.URI) error { return errors.New("AccessDenied") }
	ledger := openLedger(t)

	job, err := New(testConfig(), store, catalog.Disabled{}, ledger, zerolog.Nop())
	require.NoError(t, err)

	sum, err := job.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, store.Puts, "first failure aborts remaining partitions")

	run, gerr := ledger.Get(ctx, sum.RunID)
	require.NoError(t, gerr)
	assert.Equal(t, jobrun.StatusFailed, run.Status)
	assert.Contains(t, run.Error, "AccessDenied")
}

// TestRun_CatalogErrorIsFatal: an existence check error other than
// not-found fails the run without scanning anything.
func TestRun_CatalogErrorIsFatal(t *testing.T) {
	store := objstore.NewMemory()
	job, err := New(testConfig(), store, failingCatalog{}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = job.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.Lists)
	assert.Zero(t, store.Puts)
}

type failingCatalog struct{ catalog.Disabled }

func (failingCatalog) TableExists(context.Context, string, string) (bool, error) {
	return false, errors.New("glue: throttled")
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChoicePolicy = "guess"
	_, err := New(cfg, objstore.NewMemory(), catalog.Disabled{}, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.CleansedPath = "cleansed"
	_, err = New(cfg, objstore.NewMemory(), catalog.Disabled{}, nil, zerolog.Nop())
	assert.Error(t, err)
}
