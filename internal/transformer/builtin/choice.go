package builtin

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// ChoicePolicy selects how ResolveChoice treats a field whose kind varies
// across records.
type ChoicePolicy string

const (
	// ChoiceMakeStruct wraps each value as a schema.Choice with the member for its
	// observed kind set.
	ChoiceMakeStruct ChoicePolicy = "make_struct"
	// ChoiceProject keeps a value only when its observed kind is the declared type.
	ChoiceProject ChoicePolicy = "project"
	// ChoiceCast converts each value to the declared type directly.
	ChoiceCast ChoicePolicy = "cast"
)

// ParseChoicePolicy validates s.
func ParseChoicePolicy(s string) (ChoicePolicy, error) {
	switch p := ChoicePolicy(s); p {
	case ChoiceMakeStruct, ChoiceProject, ChoiceCast:
		return p, nil
	case "":
		return ChoiceMakeStruct, nil
	}
	return "", errors.Newf("builtin: unknown choice policy %q", s)
}

// ChoiceFields returns the fields that may arrive with a varying kind: every
// long and boolean field plus tags, which is sometimes a list.
func ChoiceFields(fields []schema.Field) []schema.Field {
	var out []schema.Field
	for _, f := range fields {
		if f.Type != schema.String || f.Target == "tags" {
			out = append(out, f)
		}
	}
	return out
}

// ResolveChoice normalizes ambiguous fields according to Policy.
type ResolveChoice struct {
	Fields []schema.Field
	Policy ChoicePolicy
}

func (rc ResolveChoice) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for _, f := range rc.Fields {
			v, ok := r[f.Target]
			if !ok || v == nil {
				continue
			}
			switch rc.Policy {
			case ChoiceProject:
				if observedType(v) != f.Type {
					r[f.Target] = nil
					continue
				}
				r[f.Target], _ = Cast(v, f.Type)
			case ChoiceCast:
				r[f.Target], _ = Cast(v, f.Type)
			default:
				r[f.Target] = MakeChoice(v)
			}
		}
	}
	return in
}

// observedType classifies a decoded value. Integral numbers are long;
// everything that is neither a number nor a boolean is a string.
func observedType(v any) schema.Type {
	switch x := v.(type) {
	case bool:
		return schema.Boolean
	case int, int64:
		return schema.Long
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return schema.Long
		}
	case float64:
		if x == float64(int64(x)) {
			return schema.Long
		}
	}
	return schema.String
}

// MakeChoice wraps v in a schema.Choice keyed by its observed kind. A value
// of an unrecognized Go type yields an empty Choice.
func MakeChoice(v any) schema.Choice {
	var c schema.Choice
	switch observedType(v) {
	case schema.Boolean:
		b := v.(bool)
		c.Boolean = &b
		return c
	case schema.Long:
		if n, ok := castLong(v); ok {
			i := n.(int64)
			c.Long = &i
			return c
		}
	}
	if s, ok := castString(v); ok {
		str := s.(string)
		c.String = &str
	}
	return c
}
