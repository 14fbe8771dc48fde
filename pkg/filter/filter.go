// Package filter evaluates stateless predicate conditions against nested
// JSON-like data. A condition list is conjunctive: every condition must pass.
package filter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type Operator string

const (
	OperatorEquals              Operator = "equals"
	OperatorNotEquals           Operator = "not_equals"
	OperatorContains            Operator = "contains"
	OperatorNotContains         Operator = "not_contains"
	OperatorGreaterThan         Operator = "greater_than"
	OperatorLessThan            Operator = "less_than"
	OperatorGreaterThanOrEquals Operator = "greater_than_or_equals"
	OperatorLessThanOrEquals    Operator = "less_than_or_equals"
	OperatorIsEmpty             Operator = "is_empty"
	OperatorIsNotEmpty          Operator = "is_not_empty"
	OperatorStartsWith          Operator = "starts_with"
	OperatorEndsWith            Operator = "ends_with"
)

// Condition compares the value at a dotted field path with a literal.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    string   `json:"value"`
}

// Evaluate returns the logical AND of all conditions over data. An empty
// condition list always passes. Unknown operators log a warning and pass;
// callers rely on this permissive default, do not tighten it here.
func Evaluate(logger *slog.Logger, conditions []Condition, data map[string]any) bool {
	for _, condition := range conditions {
		if !evaluateCondition(logger, condition, data) {
			return false
		}
	}

	return true
}

func evaluateCondition(logger *slog.Logger, condition Condition, data map[string]any) bool {
	value, present := ResolvePath(data, condition.Field)

	switch condition.Operator {
	case OperatorEquals:
		return present && stringify(value) == condition.Value
	case OperatorNotEquals:
		return !present || stringify(value) != condition.Value
	case OperatorContains:
		return present && strings.Contains(
			strings.ToLower(stringify(value)),
			strings.ToLower(condition.Value),
		)
	case OperatorNotContains:
		return !present || !strings.Contains(
			strings.ToLower(stringify(value)),
			strings.ToLower(condition.Value),
		)
	case OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterThanOrEquals, OperatorLessThanOrEquals:
		return compareNumeric(condition.Operator, value, condition.Value)
	case OperatorIsEmpty:
		return !present || value == nil || stringify(value) == ""
	case OperatorIsNotEmpty:
		return present && value != nil && stringify(value) != ""
	case OperatorStartsWith:
		return present && strings.HasPrefix(
			strings.ToLower(stringify(value)),
			strings.ToLower(condition.Value),
		)
	case OperatorEndsWith:
		return present && strings.HasSuffix(
			strings.ToLower(stringify(value)),
			strings.ToLower(condition.Value),
		)
	default:
		logger.Warn("Unknown filter operator, condition passes",
			"operator", string(condition.Operator), "field", condition.Field)

		return true
	}
}

func compareNumeric(operator Operator, value any, expected string) bool {
	left, err := toFloat(value)
	if err != nil {
		return false
	}

	right, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false
	}

	switch operator {
	case OperatorGreaterThan:
		return left > right
	case OperatorLessThan:
		return left < right
	case OperatorGreaterThanOrEquals:
		return left >= right
	case OperatorLessThanOrEquals:
		return left <= right
	default:
		return false
	}
}

// ResolvePath walks a dotted path through nested maps, returning the value
// and whether every segment was present. It never panics on missing or
// mistyped segments.
func ResolvePath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
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

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}
