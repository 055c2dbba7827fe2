package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// SKLearnCompatible is an estimator whose hyperparameters can be read,
// replaced and copied into an unfitted clone. Model selection relies on it.
type SKLearnCompatible interface {
	Estimator

	// GetParams returns the hyperparameters keyed by their snake_case name.
	GetParams() map[string]interface{}

	// SetParams updates the named hyperparameters. Unknown names are an error.
	SetParams(params map[string]interface{}) error

	// Clone returns an unfitted copy with the same hyperparameters.
	Clone() SKLearnCompatible
}

// ParamInt coerces a hyperparameter value to int. Whole floats are accepted
// since YAML and JSON decoders produce them for integer literals.
func ParamInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	case float32:
		if float64(x) == math.Trunc(float64(x)) {
			return int(x), nil
		}
	}
	return 0, errors.NewValidationError(name, "expected an integer", v)
}

// ParamOptionalInt coerces a hyperparameter that may be nil (meaning unlimited)
// to an int, returning -1 for nil.
func ParamOptionalInt(name string, v interface{}) (int, error) {
	if v == nil {
		return -1, nil
	}
	return ParamInt(name, v)
}

// ParamFloat coerces a hyperparameter value to float64.
func ParamFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, "expected a number", v)
}

// ParamString coerces a hyperparameter value to string.
func ParamString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	return s, nil
}

// ParamBool coerces a hyperparameter value to bool.
func ParamBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "expected a bool", v)
	}
	return b, nil
}

// FormatParams renders params in sorted key order, e.g. "max_depth=4 min_samples_leaf=2".
func FormatParams(params map[string]interface{}) string {
	keys := SortedKeys(params)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, params[k])
	}
	return out
}

// SortedKeys returns the keys of params in lexical order.
func SortedKeys(params map[string]interface{}) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
