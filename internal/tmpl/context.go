package tmpl

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/flosch/pongo2/v6"
)

// Float is a fractional number from a render context. It prints the way
// Python does ("2.5", "3.0") instead of pongo2's fixed six decimals.
type Float float64

func (f Float) String() string {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s += ".0"
	}
	return s
}

func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// contextFor copies data into a pongo2 context. Top-level keys that are not
// identifiers are dropped: no expression can name them and pongo2 rejects
// the whole context if one is present.
func contextFor(data map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(data))
	for k, v := range data {
		if !isIdentifier(k) {
			continue
		}
		ctx[k] = normalize(v)
	}
	return ctx
}

// isIdentifier matches pongo2's rule for context keys: [a-zA-Z0-9_]+.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// normalize converts decoded JSON numbers so they print as written:
// integers become int64 and fractions become Float. Maps and slices are
// copied, never modified in place.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return Float(f)
		}
		return x.String()
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x)
		}
		return Float(x)
	case float32:
		return normalize(float64(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}
