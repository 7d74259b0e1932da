// Package parser holds the format decoders used by the raw-path reader.
package parser

import (
	"io"

	"ytetl/internal/records"
)

// Parser decodes one object into records, returning how many malformed rows
// were skipped.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}
