package types

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParameterValueType(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr error
	}{
		{"string", "x", ValueTypeString, nil},
		{"empty string", "", ValueTypeString, nil},
		{"float", 3.5, ValueTypeScalar, nil},
		{"int", 1, ValueTypeScalar, nil},
		{"uint8", uint8(7), ValueTypeScalar, nil},
		{"json number", json.Number("12.5"), ValueTypeScalar, nil},
		{"float slice", []float64{1, 2, 3}, ValueTypeArray, nil},
		{"int slice", []int{1, 2, 3}, ValueTypeArray, nil},
		{"any slice of numbers", []any{1.0, 2, json.Number("3")}, ValueTypeArray, nil},
		{"empty slice", []float64{}, ValueTypeArray, nil},
		{"fixed array", [2]float64{1, 2}, ValueTypeArray, nil},
		{"mapping", map[string]any{}, "", ErrStructural},
		{"bool", true, "", ErrStructural},
		{"nil", nil, "", ErrStructural},
		{"nil slice", []float64(nil), "", ErrStructural},
		{"mixed slice", []any{1.0, "two"}, "", ErrStructural},
		{"slice with nil", []any{1.0, nil}, "", ErrStructural},
		{"string slice", []string{"a"}, "", ErrStructural},
		{"bad json number", json.Number("abc"), "", ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParameterValueType(tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParameterValueType(%#v) error = %v, want %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParameterValueType(%#v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestCloneParameterValue(t *testing.T) {
	src := []int{1, 2}
	got := CloneParameterValue(src)
	src[0] = 7
	if want := []any{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("CloneParameterValue = %v, want %v", got, want)
	}
	if got := CloneParameterValue([2]float64{3, 4}); !reflect.DeepEqual(got, []any{3.0, 4.0}) {
		t.Errorf("CloneParameterValue(array) = %v", got)
	}
	if got := CloneParameterValue("s"); got != "s" {
		t.Errorf("CloneParameterValue(string) = %v", got)
	}
}
