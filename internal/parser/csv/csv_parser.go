// Package csv parses delimited text objects into records.Record maps.
//
// Raw statistics exported from the trending-videos feed are comma-separated
// with a header row; descriptions contain quoted newlines and the first header
// cell may carry a UTF-8 BOM. Rows whose width does not match the header are
// skipped and counted rather than failing the object.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"ytetl/internal/parser"
	"ytetl/internal/records"
)

// Options configures the parser. The zero value parses headerless,
// comma-separated input.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0 and there is no header, names columns col_0..
	// and enforces the width.
	ExpectedFields int

	// HeaderMap maps source header names to canonical keys. Only applies
	// when HasHeader is true.
	HeaderMap map[string]string

	// Logger receives one warning per skipped row, up to MaxLoggedSkips.
	Logger *zerolog.Logger

	// MaxLoggedSkips caps skipped-row warnings; zero means 100.
	MaxLoggedSkips int
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not concurrently.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Logger == nil {
		nop := zerolog.Nop()
		opt.Logger = &nop
	}
	if opt.MaxLoggedSkips == 0 {
		opt.MaxLoggedSkips = 100
	}
	return &Parser{opt: opt}
}

const utf8BOM = "\uFEFF"

// Parse consumes r and returns the parsed rows along with the number of rows
// skipped for parse errors or width mismatches. Empty fields become nil.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Width is enforced below so that a bad row is skipped, not fatal.
	cr.FieldsPerRecord = -1

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return nil, 0, nil
		}
		if err != nil {
			return nil, 0, errors.Wrap(err, "csv parser: read header")
		}
		headers = normalizeHeaders(h, p.opt.HeaderMap)
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}

	var (
		out     []records.Record
		skipped int
	)
	skip := func(line int, reason string) {
		if skipped < p.opt.MaxLoggedSkips {
			p.opt.Logger.Warn().Int("line", line).Str("reason", reason).Msg("csv parser: skipping row")
		}
		skipped++
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return out, skipped, errors.Wrap(err, "csv parser: read")
			}
			skip(pe.Line, pe.Err.Error())
			continue
		}
		if len(headers) > 0 && len(row) != len(headers) {
			line, _ := cr.FieldPos(0)
			skip(line, fmt.Sprintf("expected %d fields, got %d", len(headers), len(row)))
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, headers)] = emptyToNil(val)
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders maps headers through headerMap, falling back to
// lower_snake_case. A BOM on the first cell is dropped.
func normalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if m, ok := headerMap[c]; ok {
			res[i] = m
			continue
		}
		res[i] = strings.ReplaceAll(strings.ToLower(foldAccents(c)), " ", "_")
	}
	return res
}

// foldAccents strips combining marks so that "Catégorie" and "Categorie"
// map to the same key.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
