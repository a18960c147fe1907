package types

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Parameter value kinds, stored as valueType in the header.
const (
	ValueTypeScalar = "scalar"
	ValueTypeString = "string"
	ValueTypeArray  = "array"
)

// Parameter is a process parameter kept in header.process.parameters.
type Parameter struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Symbol    string `json:"symbol"`
	Value     any    `json:"value"`
	ValueType string `json:"valueType"`
}

// ParameterValueType derives the value kind from the runtime shape of v.
// Strings are "string"; integers, floats and json.Number are "scalar";
// slices or arrays whose elements are all numbers are "array". Everything
// else, booleans included, fails with ErrStructural.
func ParameterValueType(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return ValueTypeString, nil
	case json.Number:
		if _, err := x.Float64(); err != nil {
			return "", fmt.Errorf("%w: parameter value %q is not a number", ErrStructural, string(x))
		}
		return ValueTypeScalar, nil
	}

	rv := reflect.ValueOf(v)
	if isNumericKind(rv.Kind()) {
		return ValueTypeScalar, nil
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "", fmt.Errorf("%w: parameter value is a nil slice", ErrStructural)
		}
		for i := 0; i < rv.Len(); i++ {
			if !isNumber(rv.Index(i)) {
				return "", fmt.Errorf("%w: parameter array element %d is not a number", ErrStructural, i)
			}
		}
		return ValueTypeArray, nil
	}
	return "", fmt.Errorf("%w: parameter must be a scalar, a numeric array or a string, got %T", ErrStructural, v)
}

// isNumber reports whether the element (possibly an interface) holds a number.
func isNumber(v reflect.Value) bool {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if n, ok := v.Interface().(json.Number); ok {
		_, err := n.Float64()
		return err == nil
	}
	return isNumericKind(v.Kind())
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// CloneParameterValue returns v with slices and arrays copied into a fresh
// []any, so later writes to the caller's slice do not reach the header.
// Other values are returned as is.
func CloneParameterValue(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
