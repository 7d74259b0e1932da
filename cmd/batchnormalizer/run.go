package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ytetl/internal/batch"
	"ytetl/internal/catalog"
	"ytetl/internal/config"
	"ytetl/internal/jobrun"
	"ytetl/internal/logging"
	"ytetl/internal/metrics"
	"ytetl/internal/metrics/datadog"
	"ytetl/internal/metrics/prompush"
	"ytetl/internal/objstore"

	// register all ledger backends with the storage factory.
	_ "ytetl/internal/storage/all"
)

type runFlags struct {
	jobName        string
	timeout        time.Duration
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
}

func newRunCmd(rf *rootFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch normalizer once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), rf, f)
		},
	}
	cmd.Flags().StringVar(&f.jobName, "JOB_NAME", "", "job name (required)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 2*time.Hour, "abort the run after this long")
	cmd.Flags().StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (env METRICS_BACKEND)")
	cmd.Flags().StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	cmd.Flags().StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	_ = cmd.MarkFlagRequired("JOB_NAME")
	return cmd
}

func runBatch(parent context.Context, rf *rootFlags, f *runFlags) error {
	log := logging.New(rf.logLevel, logging.Format(rf.logFormat), "batchnormalizer")

	cfg, err := loadConfig(rf.configPath, f.jobName)
	if err != nil {
		return err
	}
	if err := report(os.Stderr, config.ValidateBatch(cfg)); err != nil {
		return err
	}
	log.Info().
		Str("job", cfg.JobName).
		Str("raw", cfg.RawDatabase+"."+cfg.RawTable).
		Strs("regions", cfg.Regions).
		Str("raw_path", cfg.RawPath).
		Str("cleansed_path", cfg.CleansedPath).
		Str("catalog", cfg.Catalog).
		Msg("conf: batch configuration")

	if flush := setupMetrics(f, cfg.JobName, log); flush != nil {
		defer flush()
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "aws: load default config")
	}
	store := objstore.Mux{
		objstore.SchemeS3:   objstore.NewS3(s3.NewFromConfig(awsCfg)),
		objstore.SchemeFile: objstore.NewLocal(),
	}
	var cat catalog.Catalog = catalog.Disabled{}
	if cfg.Catalog == "glue" {
		cat = catalog.NewGlue(glue.NewFromConfig(awsCfg))
	}

	ledger, err := jobrun.Open(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	job, err := batch.New(cfg, store, cat, ledger, log)
	if err != nil {
		return err
	}
	_, err = job.Run(ctx)
	return err
}

// setupMetrics installs the selected backend, choosing flag → env → default,
// and returns the flush to run at exit, or nil.
func setupMetrics(f *runFlags, jobName string, log zerolog.Logger) func() {
	name := firstNonEmpty(f.metricsBackend, os.Getenv("METRICS_BACKEND"), "none")
	switch name {
	case "pushgateway":
		gw := firstNonEmpty(f.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(jobName, gw)
		if err != nil {
			log.Warn().Err(err).Msg("metrics: failed to init pushgateway backend; using nop")
			return nil
		}
		metrics.SetBackend(b)
		log.Info().Str("backend", name).Str("url", gw).Msg("metrics: enabled")
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn().Err(err).Msg("metrics: flush error")
			}
		}
	case "datadog":
		addr := firstNonEmpty(f.datadogAddr, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "ytetl.", GlobalTags: []string{"job:" + jobName}})
		if err != nil {
			log.Warn().Err(err).Msg("metrics: failed to init datadog backend; using nop")
			return nil
		}
		metrics.SetBackend(b)
		log.Info().Str("backend", name).Str("addr", addr).Msg("metrics: enabled")
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn().Err(err).Msg("metrics: flush error")
			}
			_ = b.Close()
		}
	case "none":
		log.Debug().Msg("metrics: disabled")
	default:
		log.Warn().Str("backend", name).Msg("metrics: unknown backend; metrics disabled")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
