package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// InPredicate is a "column in ('a','b')" filter. It renders as a Glue
// partition expression for pushdown and can also be evaluated on values when
// pushdown is not possible.
type InPredicate struct {
	Column string
	Values []string
}

// Expression renders the predicate with single-quoted literals.
func (p InPredicate) Expression() string {
	quoted := make([]string, len(p.Values))
	for i, v := range p.Values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("%s in (%s)", p.Column, strings.Join(quoted, ","))
}

// Match reports whether v is a string in the value list.
func (p InPredicate) Match(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, want := range p.Values {
		if s == want {
			return true
		}
	}
	return false
}

var inExpr = regexp.MustCompile(`(?is)^\s*([a-z_][a-z0-9_]*)\s+in\s*\((.*)\)\s*$`)

// ParseInPredicate parses the output of Expression back into an InPredicate.
func ParseInPredicate(expr string) (InPredicate, error) {
	m := inExpr.FindStringSubmatch(expr)
	if m == nil {
		return InPredicate{}, errors.Newf("catalog: unsupported expression %q", expr)
	}
	p := InPredicate{Column: m[1]}
	for _, lit := range splitLiterals(m[2]) {
		lit = strings.TrimSpace(lit)
		if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
			return InPredicate{}, errors.Newf("catalog: bad literal %q in %q", lit, expr)
		}
		p.Values = append(p.Values, strings.ReplaceAll(lit[1:len(lit)-1], "''", "'"))
	}
	return p, nil
}

// splitLiterals splits on commas outside single quotes.
func splitLiterals(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote bool
	)
	for _, r := range s {
		switch {
		case r == '\'':
			quote = !quote
			cur.WriteRune(r)
		case r == ',' && !quote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}
