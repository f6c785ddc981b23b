package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// Params maps hyperparameter names to values, using the same names as the
// grid catalogue (e.g. "alpha", "max_depth", "n_estimators"). A nil value
// means "unset" or "unbounded", such as max_depth None.
type Params map[string]any

// Clone returns a shallow copy. Values are scalars so a shallow copy is
// enough to keep candidates independent.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the params deterministically, e.g. "{alpha: 1, solver: svd}".
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		v := p[k]
		if v == nil {
			parts = append(parts, k+": None")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParamFloat converts an int or float value to float64.
func ParamFloat(name string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, "expected a number", v)
	}
}

// ParamInt converts an integral value to int. Floats with a fractional part
// are rejected.
func ParamInt(name string, v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(name, "expected an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(name, "expected an integer", v)
	}
}

// ParamOptionalInt is ParamInt where nil (and any negative value) means
// unbounded and is returned as -1.
func ParamOptionalInt(name string, v any) (int, error) {
	if v == nil {
		return -1, nil
	}
	n, err := ParamInt(name, v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return -1, nil
	}
	return n, nil
}

// ParamBool accepts a bool.
func ParamBool(name string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "expected a boolean", v)
	}
	return b, nil
}

// ParamChoice accepts a string that must be one of allowed.
func ParamChoice(name string, v any, allowed ...string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", errors.NewValidationError(name, "must be one of "+strings.Join(allowed, ", "), v)
}

// UnknownParam is the error returned by SetParams for a name the estimator
// does not recognise.
func UnknownParam(modelName, name string, v any) error {
	return errors.NewValidationError(name, "unknown parameter for "+modelName, v)
}
