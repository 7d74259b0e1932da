// Package builtin contains the record transformers that make up the schema
// mapper. Each type implements transformer.Transformer and mutates records in
// place where it can.
package builtin

import (
	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// ApplyMapping projects each record onto Fields, renaming Source to Target.
// Keys not named by a field are dropped; absent sources stay absent.
type ApplyMapping struct {
	Fields []schema.Field
}

func (m ApplyMapping) Apply(in []records.Record) []records.Record {
	for i, r := range in {
		out := make(records.Record, len(m.Fields))
		for _, f := range m.Fields {
			if v, ok := r[f.Source]; ok {
				out[f.Target] = v
			}
		}
		in[i] = out
	}
	return in
}

// DropNullFields removes keys whose value is nil.
type DropNullFields struct{}

func (DropNullFields) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			if v == nil {
				delete(r, k)
			}
		}
	}
	return in
}

// Assert resolves every declared field to its type with Cast. Values that
// cannot be interpreted become nil.
type Assert struct {
	Fields []schema.Field
}

func (a Assert) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for _, f := range a.Fields {
			v, ok := r[f.Target]
			if !ok {
				continue
			}
			out, _ := Cast(v, f.Type)
			r[f.Target] = out
		}
	}
	return in
}
