// Package batch runs the batch normalizer: select raw statistics, map them to
// the 17-column schema, and write one Parquet file per region.
//
// Each run is bracketed by the run ledger (jobrun): a row is inserted when
// the run starts and completed with counters or the error when it ends.
package batch

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/catalog"
	"ytetl/internal/config"
	"ytetl/internal/jobrun"
	"ytetl/internal/metrics"
	"ytetl/internal/objstore"
	"ytetl/internal/records"
	"ytetl/internal/sink"
	"ytetl/internal/source"
	"ytetl/internal/transformer"
	"ytetl/internal/transformer/builtin"
)

// Selector is the source stage.
type Selector interface {
	Select(ctx context.Context) (source.Result, error)
}

// Mapper is the schema mapping stage.
type Mapper interface {
	Apply([]records.Record) []records.Record
}

// Job wires the three stages of one batch run.
type Job struct {
	Name     string
	Selector Selector
	Mapper   Mapper
	Writer   *sink.PartitionedWriter
	Ledger   *jobrun.Ledger
	Log      zerolog.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Path        source.Path
	Location    string
	Filtered    bool
	RowsRead    int
	RowsMapped  int
	RowsWritten int
	Files       []sink.File
	Took        time.Duration
}

// New builds a Job from cfg. store and cat are the already-constructed
// object store and catalog; ledger may be nil.
func New(cfg config.Batch, store objstore.Store, cat catalog.Catalog, ledger *jobrun.Ledger, log zerolog.Logger) (*Job, error) {
	rawPath, err := objstore.ParseURI(cfg.RawPath)
	if err != nil {
		return nil, errors.Wrap(err, "batch: raw_path")
	}
	dest, err := objstore.ParseURI(cfg.CleansedPath)
	if err != nil {
		return nil, errors.Wrap(err, "batch: cleansed_path")
	}
	policy, err := builtin.ParseChoicePolicy(cfg.ChoicePolicy)
	if err != nil {
		return nil, err
	}
	return &Job{
		Name: cfg.JobName,
		Selector: &source.Selector{
			Catalog: cat,
			Store:   store,
			Opts: source.Options{
				Database:        cfg.RawDatabase,
				Table:           cfg.RawTable,
				RawPath:         rawPath,
				RawFormat:       cfg.RawFormat,
				Regions:         cfg.Regions,
				ReadConcurrency: cfg.ReadConcurrency,
			},
			Log: log,
		},
		Mapper: transformer.NewStatisticsMapper(policy),
		Writer: &sink.PartitionedWriter{Store: store, Dest: dest, Log: log},
		Ledger: ledger,
		Log:    log,
	}, nil
}

// Run executes one run. Any stage failure aborts the run, is recorded in the
// ledger, and is returned.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	run, err := j.Ledger.Init(ctx, j.Name)
	if err != nil {
		return Summary{}, err
	}
	log := j.Log.With().Str("job", j.Name).Str("run_id", run.ID).Logger()
	log.Info().Msg("job: started")

	sum, err := j.run(ctx, run.ID, log)
	sum.RunID = run.ID
	sum.Took = time.Since(start)
	if err != nil {
		if lerr := j.Ledger.Fail(context.WithoutCancel(ctx), run, err); lerr != nil {
			log.Error().Err(lerr).Msg("job: could not record failure")
		}
		log.Error().Err(err).Dur("took", sum.Took).Msg("job: failed")
		return sum, err
	}

	err = j.Ledger.Commit(ctx, run, jobrun.Summary{
		SourcePath:  string(sum.Path) + ":" + sum.Location,
		RowsRead:    int64(sum.RowsRead),
		RowsWritten: int64(sum.RowsWritten),
		Partitions:  len(sum.Files),
	})
	if err != nil {
		return sum, err
	}
	log.Info().
		Str("path", string(sum.Path)).
		Int("rows_read", sum.RowsRead).
		Int("rows_written", sum.RowsWritten).
		Int("partitions", len(sum.Files)).
		Dur("took", sum.Took).
		Msg("job: committed")
	return sum, nil
}

func (j *Job) run(ctx context.Context, runID string, log zerolog.Logger) (Summary, error) {
	var sum Summary

	done := metrics.Timer(j.Name, metrics.StepSelect)
	res, err := j.Selector.Select(ctx)
	done(err)
	if err != nil {
		return sum, err
	}
	sum.Path, sum.Location, sum.Filtered = res.Path, res.Location, res.Filtered
	sum.RowsRead = len(res.Records)
	metrics.RecordRow(j.Name, "read", int64(sum.RowsRead))

	start := time.Now()
	mapped := j.Mapper.Apply(res.Records)
	metrics.RecordStep(j.Name, metrics.StepMap, nil, time.Since(start))
	sum.RowsMapped = len(mapped)
	metrics.RecordRow(j.Name, "mapped", int64(sum.RowsMapped))
	log.Info().Int("rows", sum.RowsMapped).Msg("map: records mapped")

	j.Writer.RunID = runID
	done = metrics.Timer(j.Name, metrics.StepWrite)
	wr, err := j.Writer.Write(ctx, mapped)
	done(err)
	sum.Files = wr.Files
	sum.RowsWritten = wr.Rows
	if err != nil {
		return sum, errors.Wrap(err, "batch: write")
	}
	metrics.RecordRow(j.Name, "written", int64(wr.Rows))
	metrics.RecordFiles(j.Name, int64(len(wr.Files)))
	return sum, nil
}
