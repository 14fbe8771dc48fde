// Package template resolves {field} placeholders in action metadata against
// run metadata. Resolution is a single pass: substituted values are never
// re-scanned for placeholders, and unknown fields are left literal so a
// half-configured template is visible in the delivered payload instead of
// silently dropped.
package template

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/zapline/zapline/pkg/filter"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// Resolve substitutes every {field} placeholder in input with the
// corresponding value from data. Field may be a dotted path into nested
// maps. Missing fields leave the placeholder untouched.
func Resolve(input string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		field := match[1 : len(match)-1]

		value, ok := filter.ResolvePath(data, field)
		if !ok {
			return match
		}

		return stringify(value)
	})
}

// ResolveMap resolves placeholders in every string value of a metadata
// template document, recursing into nested maps and slices. Non-string
// values pass through unchanged.
func ResolveMap(input map[string]any, data map[string]any) map[string]any {
	resolved := make(map[string]any, len(input))
	for key, value := range input {
		resolved[key] = resolveValue(value, data)
	}

	return resolved
}

func resolveValue(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		return Resolve(v, data)
	case map[string]any:
		return ResolveMap(v, data)
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			resolved[i] = resolveValue(item, data)
		}

		return resolved
	default:
		return value
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
