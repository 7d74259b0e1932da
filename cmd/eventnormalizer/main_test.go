package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytetl/internal/config"
	"ytetl/internal/metrics/datadog"
	"ytetl/internal/sink"
)

// isolateAWS keeps the SDK away from the host's shared config and credentials.
func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
}

func TestNewHandler_WiresIncrementalWriter(t *testing.T) {
	isolateAWS(t)
	cfg := config.LoadEvent(func(k string) (string, bool) {
		env := map[string]string{
			config.EnvCleansedLayer:  "s3://cleansed/youtube/reference",
			config.EnvCatalogDB:      "db_youtube_cleaned",
			config.EnvCatalogTable:   "cleaned_statistics_reference_data",
			config.EnvWriteOperation: "overwrite",
			config.EnvFailFast:       "true",
		}
		v, ok := env[k]
		return v, ok
	})

	h, err := newHandler(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, h.FailFast)
	assert.Equal(t, service, h.Job)
	require.NotNil(t, h.Store)

	w, ok := h.Writer.(*sink.IncrementalWriter)
	require.True(t, ok, "writer is %T", h.Writer)
	assert.Equal(t, "s3://cleansed/youtube/reference/", w.Dest.String())
	assert.Equal(t, "db_youtube_cleaned", w.Database)
	assert.Equal(t, "cleaned_statistics_reference_data", w.Table)
	assert.Equal(t, config.WriteOverwrite, w.Mode)
	assert.NotNil(t, w.Catalog)
}

func TestNewHandler_BadDestination(t *testing.T) {
	isolateAWS(t)
	_, err := newHandler(context.Background(), config.Event{DestPath: "cleansed/no-scheme/", Mode: config.WriteAppend}, zerolog.Nop())
	assert.Error(t, err)
}

func TestMetricsBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Event
		enabled bool
	}{
		{name: "unset", cfg: config.Event{}},
		{name: "none", cfg: config.Event{MetricsBackend: "none", DatadogAddr: "127.0.0.1:8125"}},
		{name: "datadog without addr", cfg: config.Event{MetricsBackend: "datadog"}},
		{name: "unknown", cfg: config.Event{MetricsBackend: "statsite", DatadogAddr: "127.0.0.1:8125"}},
		{name: "datadog", cfg: config.Event{MetricsBackend: "datadog", DatadogAddr: "127.0.0.1:8125"}, enabled: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := metricsBackend(tc.cfg, zerolog.Nop())
			if !tc.enabled {
				assert.Nil(t, b)
				return
			}
			dd, ok := b.(*datadog.Backend)
			require.True(t, ok, "backend is %T", b)
			assert.NoError(t, dd.Close())
		})
	}
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, zerolog.ErrorLevel, levelOf(config.SeverityError))
	assert.Equal(t, zerolog.WarnLevel, levelOf(config.SeverityWarning))
}
