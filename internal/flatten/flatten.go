// Package flatten turns a category reference document into typed rows.
//
// The document is a JSON object with an "items" array. Each item is
// flattened with dotted paths (snippet.title) and projected onto the six
// columns of schema.Category. Column presence is decided over the whole
// batch: a column exists when any item carries it, and items lacking it get
// null in that column.
//
// Flatten never returns an error. Malformed or unexpected input produces an
// empty Result whose Reason says why, and is logged.
package flatten

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/records"
	"ytetl/internal/schema"
	"ytetl/internal/transformer/builtin"
)

// Reasons for an empty Result.
const (
	ReasonMalformed       = "malformed-json"
	ReasonUnexpectedShape = "unexpected-shape"
	ReasonNoItems         = "no-items"
	ReasonNoExpected      = "no-expected-columns"
)

// CategoryRecord is one flattened category. Nil means null.
type CategoryRecord struct {
	Kind              *string
	Etag              *string
	ID                *string
	SnippetChannelID  *string
	SnippetTitle      *string
	SnippetAssignable *bool
}

// Value returns the value of the named target column, or nil.
func (c CategoryRecord) Value(column string) any {
	var s *string
	switch column {
	case "kind":
		s = c.Kind
	case "etag":
		s = c.Etag
	case "id":
		s = c.ID
	case "snippet_channelid":
		s = c.SnippetChannelID
	case "snippet_title":
		s = c.SnippetTitle
	case "snippet_assignable":
		if c.SnippetAssignable != nil {
			return *c.SnippetAssignable
		}
		return nil
	}
	if s != nil {
		return *s
	}
	return nil
}

// Result is the outcome of flattening one document.
type Result struct {
	Rows []CategoryRecord
	// Columns lists the present target columns in mapping order.
	Columns []string
	// Missing lists the source paths absent from every item.
	Missing []string
	// Reason is set when Rows is empty.
	Reason string
}

// Empty reports whether there is nothing to write.
func (r Result) Empty() bool { return len(r.Rows) == 0 }

// Fields returns the schema fields of the present columns.
func (r Result) Fields() []schema.Field {
	var out []schema.Field
	for _, c := range r.Columns {
		for _, f := range schema.Category {
			if f.Target == c {
				out = append(out, f)
			}
		}
	}
	return out
}

// Records returns the rows as records keyed by the present columns. Null
// values are kept as nil so that every record has the same keys.
func (r Result) Records() []records.Record {
	out := make([]records.Record, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(records.Record, len(r.Columns))
		for _, c := range r.Columns {
			rec[c] = row.Value(c)
		}
		out[i] = rec
	}
	return out
}

// Flattener flattens documents, logging diagnostics to Log.
type Flattener struct {
	Log zerolog.Logger
}

// Flatten is Flattener{Log: zerolog.Nop()}.Flatten.
func Flatten(raw []byte) Result {
	return Flattener{Log: zerolog.Nop()}.Flatten(raw)
}

// Flatten parses raw and projects its items onto schema.Category.
func (f Flattener) Flatten(raw []byte) Result {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	err := dec.Decode(&doc)
	if err == nil {
		if _, tail := dec.Token(); tail != io.EOF {
			err = errors.New("flatten: trailing data after document")
		}
	}
	if err != nil {
		f.Log.Error().Err(err).Int("bytes", len(raw)).Msg("flatten: decode failed")
		return Result{Reason: ReasonMalformed}
	}

	obj, isObj := doc.(map[string]any)
	items, isList := obj["items"].([]any)
	if !isObj || !isList {
		ev := f.Log.Warn().Str("type", kindOf(doc))
		if isObj {
			ev = ev.Strs("keys", records.Record(obj).Keys())
		}
		ev.Msg("flatten: unexpected document shape")
		return Result{Reason: ReasonUnexpectedShape}
	}
	f.Log.Debug().Int("items", len(items)).Msg("flatten: items")
	if len(items) == 0 {
		return Result{Reason: ReasonNoItems}
	}

	flat := make([]map[string]any, 0, len(items))
	seen := map[string]bool{}
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			f.Log.Warn().Int("index", i).Str("type", kindOf(it)).Msg("flatten: skipping non-object item")
			continue
		}
		row := map[string]any{}
		flattenInto(row, "", m)
		for k := range row {
			seen[k] = true
		}
		flat = append(flat, row)
	}

	var res Result
	for _, fld := range schema.Category {
		if seen[fld.Source] {
			res.Columns = append(res.Columns, fld.Target)
		} else {
			res.Missing = append(res.Missing, fld.Source)
		}
	}
	if len(res.Missing) > 0 {
		f.Log.Warn().Strs("missing", res.Missing).Msg("flatten: missing expected keys")
	}
	if len(res.Columns) == 0 {
		f.Log.Warn().Msg("flatten: none of the expected columns present")
		return Result{Missing: res.Missing, Reason: ReasonNoExpected}
	}

	res.Rows = make([]CategoryRecord, len(flat))
	for i, row := range flat {
		res.Rows[i] = toCategory(row)
	}
	f.Log.Debug().Int("rows", len(res.Rows)).Int("columns", len(res.Columns)).Msg("flatten: shape")
	return res
}

// flattenInto writes nested objects of m into dst with dotted keys. Arrays
// and scalars are leaves.
func flattenInto(dst map[string]any, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if child, ok := m[k].(map[string]any); ok && len(child) > 0 {
			flattenInto(dst, name, child)
			continue
		}
		dst[name] = m[k]
	}
}

func toCategory(row map[string]any) CategoryRecord {
	str := func(path string) *string {
		v, ok := builtin.Cast(row[path], schema.String)
		if !ok {
			return nil
		}
		s := v.(string)
		return &s
	}
	var c CategoryRecord
	c.Kind = str("kind")
	c.Etag = str("etag")
	c.ID = str("id")
	c.SnippetChannelID = str("snippet.channelId")
	c.SnippetTitle = str("snippet.title")
	if v, ok := builtin.Cast(row["snippet.assignable"], schema.Boolean); ok {
		b := v.(bool)
		c.SnippetAssignable = &b
	}
	return c
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	}
	return "unknown"
}
