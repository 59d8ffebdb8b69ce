// internal/discovery/filter.go
package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter is a compiled jq expression. An item is kept when the first
// value the expression yields is truthy.
type Filter struct {
	expr string
	code *gojq.Code
}

// CompileFilter returns nil for an empty expression.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, code: code}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match runs the filter on a JSON-shaped value (maps, slices, float64...).
func (f *Filter) Match(v any) bool {
	if f == nil {
		return true
	}
	iter := f.code.Run(v)
	out, ok := iter.Next()
	if !ok {
		return false
	}
	if _, isErr := out.(error); isErr {
		return false
	}
	return isTruthy(out)
}

func isTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		return true
	}
}

// FilterEntries keeps the entries the filter matches.
func FilterEntries(f *Filter, entries []Entry) []Entry {
	if f == nil {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(map[string]any(e)) {
			out = append(out, e)
		}
	}
	return out
}

// FilterParsed keeps the parsed tokens the filter matches, seen through
// their JSON field names.
func FilterParsed(f *Filter, tokens []ParsedToken) ([]ParsedToken, error) {
	if f == nil {
		return tokens, nil
	}
	out := make([]ParsedToken, 0, len(tokens))
	for _, t := range tokens {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		var v map[string]any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		if f.Match(v) {
			out = append(out, t)
		}
	}
	return out, nil
}
