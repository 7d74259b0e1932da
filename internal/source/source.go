// Package source selects where the batch job reads raw statistics from.
//
// When the raw catalog table exists the selector reads through it, pushing
// the region allow-list down as a partition expression when the table is
// partitioned by region. Otherwise it scans every object under the raw path
// and filters regions on the client, tolerating a failed filter by keeping
// the unfiltered records.
package source

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ytetl/internal/catalog"
	"ytetl/internal/objstore"
	"ytetl/internal/parser"
	csvparser "ytetl/internal/parser/csv"
	jsonparser "ytetl/internal/parser/json"
	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// Path names the branch Select took.
type Path string

const (
	PathCatalog Path = "catalog"
	PathRawPath Path = "raw-path"
)

// Formats understood by the object decoder.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Options configures a Selector.
type Options struct {
	Database string
	Table    string
	// RawPath is scanned recursively when the table does not exist.
	RawPath objstore.URI
	// RawFormat is the object format under RawPath; empty means json.
	RawFormat string
	// Regions is the allow-list.
	Regions []string
	// ReadConcurrency bounds concurrent Gets; values < 1 mean 1.
	ReadConcurrency int
}

// Selector implements the catalog-or-raw-path decision.
type Selector struct {
	Catalog catalog.Catalog
	Store   objstore.Store
	Opts    Options
	Log     zerolog.Logger
}

// Result is what Select produced.
type Result struct {
	Records []records.Record
	Path    Path
	// Location is the table location or raw path that was read.
	Location string
	// Objects is the number of objects decoded.
	Objects int
	// Filtered is false when the client-side region filter failed and the
	// records are unfiltered.
	Filtered bool
}

// FilterError reports that the client-side region predicate could not be
// evaluated on a record.
type FilterError struct {
	// Index is the position of the offending record in the decoded set.
	Index int
	// Value is the region value that could not be compared.
	Value any
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("source: region filter cannot evaluate record %d: region is %T, not a string", e.Index, e.Value)
}

func (s *Selector) predicate() catalog.InPredicate {
	return catalog.InPredicate{Column: schema.PartitionColumn, Values: s.Opts.Regions}
}

// Select reads the raw records. Only an error from the table existence check
// other than not-found, or a read failure, is returned.
func (s *Selector) Select(ctx context.Context) (Result, error) {
	exists, err := s.Catalog.TableExists(ctx, s.Opts.Database, s.Opts.Table)
	if err != nil {
		return Result{}, errors.Wrapf(err, "source: check table %s.%s", s.Opts.Database, s.Opts.Table)
	}
	if exists {
		s.Log.Info().Str("path", string(PathCatalog)).
			Str("database", s.Opts.Database).Str("table", s.Opts.Table).
			Msg("source: reading through catalog")
		return s.readCatalog(ctx)
	}
	s.Log.Info().Str("path", string(PathRawPath)).
		Str("raw_path", s.Opts.RawPath.String()).
		Msg("source: catalog table not found, scanning raw path")
	return s.readRaw(ctx)
}

func (s *Selector) readCatalog(ctx context.Context) (Result, error) {
	t, err := s.Catalog.GetTable(ctx, s.Opts.Database, s.Opts.Table)
	if err != nil {
		return Result{}, errors.Wrap(err, "source: get table")
	}
	format, err := formatOf(t.Classification)
	if err != nil {
		return Result{}, err
	}
	pred := s.predicate()
	res := Result{Path: PathCatalog, Location: t.Location, Filtered: true}

	idx := t.PartitionKeyIndex(schema.PartitionColumn)
	if idx < 0 {
		loc, err := objstore.ParseURI(t.Location)
		if err != nil {
			return Result{}, errors.Wrap(err, "source: table location")
		}
		recs, n, err := s.readPrefix(ctx, loc, format)
		if err != nil {
			return Result{}, err
		}
		res.Objects = n
		for _, r := range recs {
			if pred.Match(r[schema.PartitionColumn]) {
				res.Records = append(res.Records, r)
			}
		}
		s.Log.Info().Int("read", len(recs)).Int("kept", len(res.Records)).
			Msg("source: table not partitioned by region, filtered rows")
		return res, nil
	}

	parts, err := s.Catalog.Partitions(ctx, s.Opts.Database, s.Opts.Table, pred.Expression())
	if err != nil {
		return Result{}, errors.Wrap(err, "source: list partitions")
	}
	s.Log.Info().Str("expression", pred.Expression()).Int("partitions", len(parts)).
		Msg("source: pushed down region predicate")
	for _, p := range parts {
		if idx >= len(p.Values) {
			return Result{}, errors.Newf("source: partition %s has %d values, want region at %d", p.Location, len(p.Values), idx)
		}
		loc, err := objstore.ParseURI(p.Location)
		if err != nil {
			return Result{}, errors.Wrap(err, "source: partition location")
		}
		recs, n, err := s.readPrefix(ctx, loc, format)
		if err != nil {
			return Result{}, err
		}
		res.Objects += n
		region := p.Values[idx]
		for _, r := range recs {
			r[schema.PartitionColumn] = region
		}
		res.Records = append(res.Records, recs...)
	}
	return res, nil
}

func (s *Selector) readRaw(ctx context.Context) (Result, error) {
	format := s.Opts.RawFormat
	if format == "" {
		format = FormatJSON
	}
	recs, n, err := s.readPrefix(ctx, s.Opts.RawPath, format)
	if err != nil {
		return Result{}, err
	}
	res := Result{Path: PathRawPath, Location: s.Opts.RawPath.String(), Objects: n}

	kept, err := FilterRegions(recs, s.predicate())
	var fe *FilterError
	switch {
	case errors.As(err, &fe):
		s.Log.Warn().Err(err).Int("records", len(recs)).
			Msg("source: could not filter by region in fallback, continuing unfiltered")
		res.Records = recs
	case err != nil:
		return Result{}, err
	default:
		res.Records = kept
		res.Filtered = true
	}
	s.Log.Info().Int("objects", n).Int("read", len(recs)).Int("kept", len(res.Records)).
		Msg("source: raw path read")
	return res, nil
}

// FilterRegions keeps records whose region is a string in pred's values.
// Records without a region (or a null one) are dropped. A region of any other
// type fails the whole filter with *FilterError.
func FilterRegions(recs []records.Record, pred catalog.InPredicate) ([]records.Record, error) {
	out := make([]records.Record, 0, len(recs))
	for i, r := range recs {
		v, ok := r[pred.Column]
		if !ok || v == nil {
			continue
		}
		if _, isString := v.(string); !isString {
			return nil, &FilterError{Index: i, Value: v}
		}
		if pred.Match(v) {
			out = append(out, r)
		}
	}
	return out, nil
}

func formatOf(classification string) (string, error) {
	switch strings.ToLower(classification) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", errors.Newf("source: unsupported table classification %q", classification)
	}
}

// skipObject drops directory markers and the _SUCCESS/.crc style files that
// writers leave next to data.
func skipObject(o objstore.Object) bool {
	if strings.HasSuffix(o.URI.Key, "/") {
		return true
	}
	base := path.Base(o.URI.Key)
	return strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".")
}

// readPrefix lists prefix recursively and decodes every data object with at
// most ReadConcurrency Gets in flight. Records keep listing order.
func (s *Selector) readPrefix(ctx context.Context, prefix objstore.URI, format string) ([]records.Record, int, error) {
	objs, err := s.Store.List(ctx, prefix.Dir())
	if err != nil {
		return nil, 0, errors.Wrapf(err, "source: list %s", prefix)
	}
	data := objs[:0:0]
	for _, o := range objs {
		if !skipObject(o) {
			data = append(data, o)
		}
	}

	limit := s.Opts.ReadConcurrency
	if limit < 1 {
		limit = 1
	}
	perObject := make([][]records.Record, len(data))
	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, o := range data {
		i, o := i, o
		g.Go(func() error {
			body, err := s.Store.Get(gctx, o.URI)
			if err != nil {
				return errors.Wrapf(err, "source: get %s", o.URI)
			}
			s.Log.Debug().Str("object", o.URI.String()).Int("bytes", len(body)).Msg("source: read object")
			recs, bad, err := s.decode(body, format)
			if err != nil {
				return errors.Wrapf(err, "source: decode %s", o.URI)
			}
			perObject[i] = recs
			if bad > 0 {
				mu.Lock()
				skipped += bad
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if skipped > 0 {
		s.Log.Warn().Int("skipped_rows", skipped).Str("prefix", prefix.String()).Msg("source: skipped malformed csv rows")
	}

	var out []records.Record
	for _, recs := range perObject {
		out = append(out, recs...)
	}
	return out, len(data), nil
}

// parserFor returns the decoder for format.
func (s *Selector) parserFor(format string) (parser.Parser, error) {
	switch format {
	case FormatCSV:
		log := s.Log
		return csvparser.NewParser(csvparser.Options{HasHeader: true, Logger: &log}), nil
	case FormatJSON:
		return jsonparser.Parser{Opt: jsonparser.DefaultOptions}, nil
	default:
		return nil, errors.Newf("source: unsupported format %q", format)
	}
}

func (s *Selector) decode(body []byte, format string) ([]records.Record, int, error) {
	p, err := s.parserFor(format)
	if err != nil {
		return nil, 0, err
	}
	return p.Parse(bytes.NewReader(body))
}
