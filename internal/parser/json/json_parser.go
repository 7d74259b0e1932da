// Package json turns JSON documents into records.Record maps.
//
// Raw objects in the landing zone come in three shapes and all are accepted
// by DecodeAll:
//
//   - a single object: {"video_id":"a","views":1}
//   - a top-level array of objects (when AllowArrays is set)
//   - newline-delimited objects, one per line
//
// Numbers are decoded as json.Number so that callers decide how to map them;
// the schema mapper casts them to the target column type.
package json

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"ytetl/internal/parser"
	"ytetl/internal/records"
)

// Options controls how permissive the decoder is.
type Options struct {
	// AllowArrays accepts a top-level JSON array of objects.
	AllowArrays bool
	// SkipNonObjects drops top-level primitives in NDJSON streams instead of
	// failing the whole document.
	SkipNonObjects bool
}

// DefaultOptions is what the raw-path reader uses.
var DefaultOptions = Options{AllowArrays: true, SkipNonObjects: true}

// Decoder yields one record per top-level JSON object.
type Decoder struct {
	dec *json.Decoder
	opt Options
}

// NewDecoder constructs a Decoder reading from r.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	d := json.NewDecoder(r)
	d.UseNumber()
	return &Decoder{dec: d, opt: opt}
}

// Next reads the next JSON object. io.EOF is returned when the stream is
// exhausted.
func (d *Decoder) Next() (records.Record, error) {
	for {
		var raw any
		if err := d.dec.Decode(&raw); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "json parser: decode")
		}
		if m, ok := raw.(map[string]any); ok {
			return records.Record(m), nil
		}
		if !d.opt.SkipNonObjects {
			return nil, errors.Newf("json parser: unsupported top-level JSON type %T", raw)
		}
	}
}

// DecodeAll reads every object from r. The first top-level value decides the
// shape: an array is expanded (AllowArrays), an object starts an NDJSON
// stream. An empty input yields no records and no error.
func DecodeAll(r io.Reader, opt Options) ([]records.Record, error) {
	d := json.NewDecoder(r)
	d.UseNumber()

	var root any
	if err := d.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "json parser: decode root")
	}

	var out []records.Record
	switch v := root.(type) {
	case map[string]any:
		out = append(out, records.Record(v))
	case []any:
		if !opt.AllowArrays {
			return nil, errors.New("json parser: top-level array encountered but arrays are not allowed")
		}
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, errors.Newf("json parser: element %d in array is not an object", i)
			}
			out = append(out, records.Record(obj))
		}
	default:
		if !opt.SkipNonObjects {
			return nil, errors.Newf("json parser: unsupported top-level JSON type %T", v)
		}
	}

	// Whatever follows the root is treated as NDJSON.
	rest := NewDecoder(io.MultiReader(d.Buffered(), r), opt)
	for {
		rec, err := rest.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeBytes is DecodeAll over an in-memory document.
func DecodeBytes(b []byte, opt Options) ([]records.Record, error) {
	return DecodeAll(bytes.NewReader(b), opt)
}

// Parser adapts DecodeAll to parser.Parser. JSON input never skips rows; a
// malformed document fails as a whole.
type Parser struct {
	Opt Options
}

var _ parser.Parser = Parser{}

// Parse implements parser.Parser.
func (p Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	recs, err := DecodeAll(r, p.Opt)
	return recs, 0, err
}
