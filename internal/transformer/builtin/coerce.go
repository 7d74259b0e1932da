package builtin

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"ytetl/internal/schema"
)

// Cast converts v to the Go representation of t: string, int64, or bool.
// It follows the usual engine cast rules:
//
//   - string <-> long by base-10 parse/format; a decimal string truncates
//   - string -> boolean accepts "true"/"false" in any case
//   - long -> boolean is true for non-zero
//   - numbers format canonically as strings; objects and arrays JSON-encode
//
// ok is false when v cannot be interpreted; the caller stores null.
func Cast(v any, t schema.Type) (out any, ok bool) {
	if v == nil {
		return nil, false
	}
	if c, isChoice := v.(schema.Choice); isChoice {
		if m := c.Member(t); m != nil {
			return m, true
		}
		v = c.Observed()
		if v == nil {
			return nil, false
		}
	}
	switch t {
	case schema.String:
		return castString(v)
	case schema.Long:
		return castLong(v)
	case schema.Boolean:
		return castBool(v)
	}
	return nil, false
}

func castString(v any) (any, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return x.String(), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, false
		}
		return string(b), true
	}
	return nil, false
}

func castLong(v any) (any, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	case float64:
		return truncate(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return truncate(f)
		}
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return truncate(f)
		}
	}
	return nil, false
}

func truncate(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	return int64(f), true
}

func castBool(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	case int64:
		return x != 0, true
	case int:
		return x != 0, true
	case float64:
		return x != 0, true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f != 0, true
		}
	}
	return nil, false
}
