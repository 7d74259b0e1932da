// Command eventnormalizer is the Lambda function that flattens YouTube
// category JSON into a Glue-registered Parquet dataset on every S3 put.
//
// Configuration is read from the environment once per cold start; see
// config.LoadEvent for the keys.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/catalog"
	"ytetl/internal/config"
	"ytetl/internal/event"
	"ytetl/internal/logging"
	"ytetl/internal/metrics"
	"ytetl/internal/metrics/datadog"
	"ytetl/internal/objstore"
	"ytetl/internal/sink"
)

const service = "eventnormalizer"

func main() {
	cfg := config.LoadEventFromEnv()
	log := logging.New(cfg.LogLevel, logging.FormatJSON, service)

	issues := config.ValidateEvent(cfg)
	for _, iss := range issues {
		log.WithLevel(levelOf(iss.Severity)).Str("path", iss.Path).Msg("conf: " + iss.Message)
	}
	if err := config.FirstError(issues); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	h, err := newHandler(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init: failed")
	}
	lambda.Start(func(ctx context.Context, ev events.S3Event) (event.Response, error) {
		resp, err := h.Handle(ctx, ev)
		if ferr := metrics.Flush(); ferr != nil {
			log.Warn().Err(ferr).Msg("metrics: flush error")
		}
		return resp, err
	})
}

func newHandler(ctx context.Context, cfg config.Event, log zerolog.Logger) (*event.Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "aws: load default config")
	}
	store := objstore.Mux{
		objstore.SchemeS3:   objstore.NewS3(s3.NewFromConfig(awsCfg)),
		objstore.SchemeFile: objstore.NewLocal(),
	}
	dest, err := objstore.ParseURI(cfg.DestPath)
	if err != nil {
		return nil, err
	}
	setupMetrics(cfg, log)

	log.Info().
		Str("dest_path", dest.String()).
		Str("glue_db", cfg.Database).
		Str("glue_table", cfg.Table).
		Str("mode", string(cfg.Mode)).
		Bool("fail_fast", cfg.FailFast).
		Msg("conf: event configuration")

	return &event.Handler{
		Store: store,
		Writer: &sink.IncrementalWriter{
			Store:    store,
			Catalog:  catalog.NewGlue(glue.NewFromConfig(awsCfg)),
			Dest:     dest,
			Database: cfg.Database,
			Table:    cfg.Table,
			Mode:     cfg.Mode,
			Log:      log,
		},
		FailFast: cfg.FailFast,
		Job:      service,
		Log:      log,
	}, nil
}

// setupMetrics installs the DogStatsD backend when configured. The client
// lives for the whole execution environment and is flushed per invocation.
func setupMetrics(cfg config.Event, log zerolog.Logger) {
	if b := metricsBackend(cfg, log); b != nil {
		metrics.SetBackend(b)
	}
}

// metricsBackend returns nil when metrics stay disabled.
func metricsBackend(cfg config.Event, log zerolog.Logger) metrics.Backend {
	if cfg.MetricsBackend != "datadog" || cfg.DatadogAddr == "" {
		return nil
	}
	b, err := datadog.NewBackend(datadog.Config{
		Addr:       cfg.DatadogAddr,
		Namespace:  "ytetl.",
		GlobalTags: []string{"service:" + service},
	})
	if err != nil {
		log.Warn().Err(err).Msg("metrics: failed to init datadog backend; using nop")
		return nil
	}
	return b
}

func levelOf(s config.IssueSeverity) zerolog.Level {
	if s == config.SeverityError {
		return zerolog.ErrorLevel
	}
	return zerolog.WarnLevel
}
