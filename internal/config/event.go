package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment keys read by the event normalizer.
const (
	EnvCleansedLayer  = "s3_cleansed_layer"
	EnvCatalogDB      = "glue_catalog_db_name"
	EnvCatalogTable   = "glue_catalog_table_name"
	EnvWriteOperation = "write_data_operation"
	EnvFailFast       = "write_fail_fast"
	EnvLogLevel       = "LOG_LEVEL"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvDatadogAddr    = "DD_AGENT_ADDR"
)

// WriteMode is how the incremental writer treats existing table data.
type WriteMode string

const (
	WriteAppend              WriteMode = "append"
	WriteOverwrite           WriteMode = "overwrite"
	WriteOverwritePartitions WriteMode = "overwrite_partitions"
)

// Valid reports whether m is one of the supported modes.
func (m WriteMode) Valid() bool {
	switch m {
	case WriteAppend, WriteOverwrite, WriteOverwritePartitions:
		return true
	}
	return false
}

// Event configures the event normalizer.
type Event struct {
	// DestPath is the dataset prefix, always ending in "/".
	DestPath string
	// Database and Table name the catalog table the dataset is registered as.
	Database string
	Table    string
	// Mode defaults to append.
	Mode WriteMode
	// FailFast aborts the invocation on the first write failure instead of
	// recording it and moving on to the next notification entry.
	FailFast bool

	LogLevel       string
	MetricsBackend string
	DatadogAddr    string
}

// LoadEvent builds an Event from lookup, typically os.LookupEnv. It never
// fails; ValidateEvent reports missing or malformed values.
func LoadEvent(lookup func(string) (string, bool)) Event {
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	mode := WriteMode(strings.ToLower(get(EnvWriteOperation)))
	if mode == "" {
		mode = WriteAppend
	}
	failFast, _ := strconv.ParseBool(get(EnvFailFast))

	return Event{
		DestPath:       EnsureTrailingSlash(get(EnvCleansedLayer)),
		Database:       get(EnvCatalogDB),
		Table:          get(EnvCatalogTable),
		Mode:           mode,
		FailFast:       failFast,
		LogLevel:       get(EnvLogLevel),
		MetricsBackend: get(EnvMetricsBackend),
		DatadogAddr:    get(EnvDatadogAddr),
	}
}

// LoadEventFromEnv is LoadEvent(os.LookupEnv).
func LoadEventFromEnv() Event { return LoadEvent(os.LookupEnv) }
