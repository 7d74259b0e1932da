// Package config defines the configuration model for both normalizers.
//
// The batch normalizer is configured from a YAML file whose every key is
// optional; missing keys take the defaults below, which mirror the constants
// the job has always run with. The event normalizer is configured from its
// environment once per cold start (see event.go).
//
// Example (trimmed):
//
//	raw_database: de_youtube_raw
//	raw_table: raw_statistics
//	regions: [ca, gb, us]
//	raw_path: s3://raw-bucket/youtube/raw_statistics/
//	cleansed_path: s3://cleansed-bucket/youtube/raw_statistics/
//	ledger:
//	  kind: sqlite
//	  dsn: file:runs.db
//
// Both structs are validated once at startup by ValidateBatch / ValidateEvent,
// which return lint-style Issues rather than failing on the first problem.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Defaults for the batch job.
const (
	DefaultRawDatabase     = "de_youtube_raw"
	DefaultRawTable        = "raw_statistics"
	DefaultRawFormat       = "json"
	DefaultCatalog         = "glue"
	DefaultReadConcurrency = 8
	DefaultChoicePolicy    = "make_struct"
)

// DefaultRegions is the region allow-list used when the config omits one.
var DefaultRegions = []string{"ca", "gb", "us"}

// Batch configures one run of the batch normalizer.
type Batch struct {
	// JobName identifies the run in logs, metrics, and the run ledger. The CLI
	// flag --JOB_NAME overrides the file value.
	JobName string `yaml:"job_name"`

	// RawDatabase and RawTable name the catalog table holding raw statistics.
	RawDatabase string `yaml:"raw_database"`
	RawTable    string `yaml:"raw_table"`

	// Regions is the allow-list of region codes kept by the source stage.
	Regions []string `yaml:"regions"`

	// RawPath is scanned recursively when the catalog table does not exist.
	RawPath string `yaml:"raw_path"`

	// RawFormat is the object format under RawPath: "json" or "csv".
	RawFormat string `yaml:"raw_format"`

	// CleansedPath is the destination prefix for partitioned Parquet output.
	CleansedPath string `yaml:"cleansed_path"`

	// Catalog selects the catalog implementation: "glue" or "none".
	Catalog string `yaml:"catalog"`

	// ReadConcurrency bounds concurrent object fetches in the source stage.
	ReadConcurrency int `yaml:"read_concurrency"`

	// ChoicePolicy selects how polymorphic columns are resolved:
	// "make_struct", "project", or "cast".
	ChoicePolicy string `yaml:"choice_policy"`

	// Ledger configures where run records are kept.
	Ledger Ledger `yaml:"ledger"`
}

// Ledger selects the storage backend for job run records.
type Ledger struct {
	// Kind is one of "none", "postgres", "sqlite", "mysql", "mssql".
	Kind string `yaml:"kind"`
	// DSN is handed to the backend driver unchanged.
	DSN string `yaml:"dsn"`
	// Table defaults to "job_runs".
	Table string `yaml:"table"`
}

// DefaultBatch returns a Batch populated with defaults only.
func DefaultBatch() Batch {
	return Batch{
		RawDatabase:     DefaultRawDatabase,
		RawTable:        DefaultRawTable,
		Regions:         append([]string(nil), DefaultRegions...),
		RawFormat:       DefaultRawFormat,
		Catalog:         DefaultCatalog,
		ReadConcurrency: DefaultReadConcurrency,
		ChoicePolicy:    DefaultChoicePolicy,
		Ledger:          Ledger{Kind: "none", Table: "job_runs"},
	}
}

// DecodeBatch decodes YAML from r on top of DefaultBatch. An empty document
// yields the defaults. Unknown keys are rejected so that typos surface early.
func DecodeBatch(r io.Reader) (Batch, error) {
	cfg := DefaultBatch()

	b, err := io.ReadAll(r)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read batch config")
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: decode batch config")
	}
	cfg.normalize()
	return cfg, nil
}

// LoadBatch reads and decodes the YAML file at path. An empty path returns
// the defaults.
func LoadBatch(path string) (Batch, error) {
	if path == "" {
		return DefaultBatch(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()
	return DecodeBatch(f)
}

// normalize fills zero values that YAML may have cleared and lower-cases
// enumerations.
func (b *Batch) normalize() {
	if b.RawFormat == "" {
		b.RawFormat = DefaultRawFormat
	}
	if b.Catalog == "" {
		b.Catalog = DefaultCatalog
	}
	if b.ChoicePolicy == "" {
		b.ChoicePolicy = DefaultChoicePolicy
	}
	if b.Ledger.Kind == "" {
		b.Ledger.Kind = "none"
	}
	if b.Ledger.Table == "" {
		b.Ledger.Table = "job_runs"
	}
	b.RawFormat = strings.ToLower(strings.TrimSpace(b.RawFormat))
	b.Catalog = strings.ToLower(strings.TrimSpace(b.Catalog))
	b.Ledger.Kind = strings.ToLower(strings.TrimSpace(b.Ledger.Kind))
	b.CleansedPath = EnsureTrailingSlash(b.CleansedPath)
	b.RawPath = EnsureTrailingSlash(b.RawPath)
}

// EnsureTrailingSlash appends "/" to non-empty prefixes that lack one.
func EnsureTrailingSlash(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
