// Package transformer composes record transformers into the schema mapper
// used by the batch normalizer.
//
// A Transformer takes a batch of records and returns the batch it produced;
// implementations may mutate and reslice their input. Chain runs transformers
// in order. The concrete steps live in package builtin.
package transformer

import (
	"ytetl/internal/records"
	"ytetl/internal/schema"
	"ytetl/internal/transformer/builtin"
)

// Transformer is one step of a record pipeline.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Mapper is the schema mapper: ApplyMapping, ResolveChoice, Assert, then
// DropNullFields.
type Mapper struct {
	chain Chain
}

// NewMapper builds the mapper for fields with the given choice policy.
func NewMapper(fields []schema.Field, policy builtin.ChoicePolicy) Mapper {
	return Mapper{chain: Chain{
		builtin.ApplyMapping{Fields: fields},
		builtin.ResolveChoice{Fields: builtin.ChoiceFields(fields), Policy: policy},
		builtin.Assert{Fields: fields},
		builtin.DropNullFields{},
	}}
}

// NewStatisticsMapper is NewMapper(schema.Statistics, policy).
func NewStatisticsMapper(policy builtin.ChoicePolicy) Mapper {
	return NewMapper(schema.Statistics, policy)
}

// Apply maps in. Records are rewritten in place; the returned slice shares
// in's backing array.
func (m Mapper) Apply(in []records.Record) []records.Record {
	return m.chain.Apply(in)
}
