// Package records defines the semi-structured record type that flows between
// the source, transformer, and sink stages of both normalizers.
package records

import "sort"

// Record is one decoded row. Values are whatever the decoder produced:
// string, json.Number, bool, nil, map[string]any, or []any before mapping;
// string, int64, or bool after.
type Record map[string]any

// Has reports whether key is present and non-nil.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
