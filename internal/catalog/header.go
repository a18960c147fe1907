package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// QueryHeader evaluates a JSONPath expression against a record header and
// returns all matches.
func QueryHeader(header map[string]any, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid jsonpath %q: %w", types.ErrIndexFieldInvalid, expr, err)
	}
	return x.Get(header), nil
}

// fieldValue renders the first match of x as catalog text. Strings and
// numbers are stored bare; objects and arrays as compact JSON.
func fieldValue(header map[string]any, x jp.Expr) (string, bool) {
	results := x.Get(header)
	if len(results) == 0 || results[0] == nil {
		return "", false
	}
	switch v := results[0].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return fmt.Sprint(v), true
	}
}
