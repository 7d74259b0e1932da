package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a problem worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is the config key (e.g. "ledger.dsn", "s3_cleansed_layer"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned directly.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// FirstError returns the first SeverityError issue, or nil.
func FirstError(issues []Issue) error {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return iss
		}
	}
	return nil
}

var knownSchemes = []string{"s3://", "file://"}

func hasKnownScheme(p string) bool {
	for _, s := range knownSchemes {
		if strings.HasPrefix(p, s) {
			return true
		}
	}
	return false
}

// ValidateBatch performs static validation of a batch config. It does not
// touch the network.
func ValidateBatch(b Batch) []Issue {
	var issues []Issue
	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(b.JobName) == "" {
		errf("job_name", "job name must not be empty; pass --JOB_NAME")
	}

	switch b.Catalog {
	case "glue":
		if b.RawDatabase == "" {
			errf("raw_database", "raw_database is required when catalog is glue")
		}
		if b.RawTable == "" {
			errf("raw_table", "raw_table is required when catalog is glue")
		}
	case "none":
	default:
		errf("catalog", "unknown catalog %q; want glue or none", b.Catalog)
	}

	if len(b.Regions) == 0 {
		errf("regions", "region allow-list must not be empty")
	}
	for i, r := range b.Regions {
		if strings.TrimSpace(r) == "" {
			errf(fmt.Sprintf("regions[%d]", i), "region code must not be empty")
		}
		if strings.ContainsAny(r, "'\"") {
			errf(fmt.Sprintf("regions[%d]", i), "region code %q must not contain quotes", r)
		}
	}

	if b.RawPath == "" {
		errf("raw_path", "raw_path is required for the fallback read")
	} else if !hasKnownScheme(b.RawPath) {
		errf("raw_path", "raw_path %q must start with s3:// or file://", b.RawPath)
	}
	if b.CleansedPath == "" {
		errf("cleansed_path", "cleansed_path is required")
	} else if !hasKnownScheme(b.CleansedPath) {
		errf("cleansed_path", "cleansed_path %q must start with s3:// or file://", b.CleansedPath)
	}

	switch b.RawFormat {
	case "json", "csv":
	default:
		errf("raw_format", "unknown raw_format %q; want json or csv", b.RawFormat)
	}

	switch b.ChoicePolicy {
	case "make_struct", "project", "cast":
	default:
		errf("choice_policy", "unknown choice_policy %q; want make_struct, project, or cast", b.ChoicePolicy)
	}

	if b.ReadConcurrency <= 0 {
		errf("read_concurrency", "read_concurrency must be > 0 (got %d)", b.ReadConcurrency)
	} else if b.ReadConcurrency > 64 {
		warnf("read_concurrency", "read_concurrency=%d is unusually high", b.ReadConcurrency)
	}

	switch b.Ledger.Kind {
	case "none":
	case "postgres", "sqlite", "mysql", "mssql":
		if strings.TrimSpace(b.Ledger.DSN) == "" {
			errf("ledger.dsn", "ledger kind %q requires a dsn", b.Ledger.Kind)
		}
	default:
		errf("ledger.kind", "unknown ledger kind %q", b.Ledger.Kind)
	}

	return issues
}

// ValidateEvent checks the event normalizer's environment.
func ValidateEvent(e Event) []Issue {
	var issues []Issue
	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if e.DestPath == "" {
		errf(EnvCleansedLayer, "destination path is required")
	} else if !hasKnownScheme(e.DestPath) {
		errf(EnvCleansedLayer, "destination %q must start with s3:// or file://", e.DestPath)
	}
	if e.Database == "" {
		errf(EnvCatalogDB, "catalog database is required")
	}
	if e.Table == "" {
		errf(EnvCatalogTable, "catalog table is required")
	}
	if !e.Mode.Valid() {
		errf(EnvWriteOperation, "unknown write mode %q; want append, overwrite, or overwrite_partitions", e.Mode)
	}
	switch e.MetricsBackend {
	case "", "none":
	case "datadog":
		if e.DatadogAddr == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     EnvDatadogAddr,
				Message:  "datadog backend without an agent address; metrics will be disabled",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     EnvMetricsBackend,
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", e.MetricsBackend),
		})
	}
	return issues
}
