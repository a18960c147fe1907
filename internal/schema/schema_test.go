package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

func minimalHeader() map[string]any {
	return map[string]any{
		"projectName":  "test project",
		"location":     "nowhere",
		"creationDate": "2026-10-17",
		"machine":      map[string]any{"name": "mockup machine"},
		"process": map[string]any{
			"processType": "test process",
			"tool":        map[string]any{"id": "ID1"},
			"workpiece":   map[string]any{"name": "test piece"},
			"parameters":  []any{},
		},
	}
}

func document(header any) map[string]any {
	return map[string]any{
		"$schema": MustDefault().ID(),
		"header":  header,
		"data": map[string]any{
			"samplingGrids": []any{},
			"dataChannels":  []any{},
		},
	}
}

func violationPaths(t *testing.T, err error) []string {
	t.Helper()
	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve), "expected *types.ValidationError, got %v", err)
	require.NotEmpty(t, ve.Violations)
	paths := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		paths[i] = v.Path
		assert.NotEmpty(t, v.Reason)
	}
	return paths
}

func TestDefaultLoadsBundledSchema(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "https://mesh-intelligence.github.io/mrec/schemas/measurement-record.schema.json", v.ID())

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, v, again, "validator must be loaded once per process")
}

func TestLoadRejectsInvalidSchema(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"type":`},
		{"not an object", `[1, 2]`},
		{"unknown type keyword value", `{"$id": "https://example.test/s.json", "type": "banana"}`},
		{"negative minLength", `{"$id": "https://example.test/s.json", "minLength": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrSchema)
		})
	}
}

func TestLoadWithoutID(t *testing.T) {
	v, err := Load([]byte(`{"type": "object", "required": ["a"]}`))
	require.NoError(t, err)
	assert.Empty(t, v.ID())
	assert.NoError(t, v.ValidateJSON([]byte(`{"a": 1}`)))
	assert.ErrorIs(t, v.ValidateJSON([]byte(`{}`)), types.ErrValidation)
}

func TestMinimalHeaderIsValid(t *testing.T) {
	require.NoError(t, MustDefault().Validate(document(minimalHeader())))
}

func TestEmptyHeaderIsInvalid(t *testing.T) {
	err := MustDefault().Validate(document(map[string]any{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, violationPaths(t, err), "/header")
}

func TestNilHeaderIsInvalid(t *testing.T) {
	err := MustDefault().Validate(document(nil))
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestMinimalHeaderInvalidForTestProcess(t *testing.T) {
	h := minimalHeader()
	h["process"].(map[string]any)["processType"] = "test_process"
	err := MustDefault().Validate(document(h))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)

	// The extra restrictions are satisfiable.
	p := h["process"].(map[string]any)
	p["tool"] = map[string]any{"id": "ID1", "diameter": 12.5}
	p["workpiece"] = map[string]any{"name": "test piece", "material": "steel"}
	assert.NoError(t, MustDefault().Validate(document(h)))
}

func TestParameterValueMustMatchValueType(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		valueType string
		valid     bool
	}{
		{"scalar", 1.5, "scalar", true},
		{"string", "fast", "string", true},
		{"array", []float64{1, 2.3}, "array", true},
		{"scalar tagged string", 1.5, "string", false},
		{"string tagged array", "x", "array", false},
		{"unknown tag", 1, "matrix", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := minimalHeader()
			h["process"].(map[string]any)["parameters"] = []any{map[string]any{
				"name": "p", "unit": "m", "symbol": "", "value": tt.value, "valueType": tt.valueType,
			}}
			err := MustDefault().Validate(document(h))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestDataEntries(t *testing.T) {
	grid := map[string]any{
		"name": "grid", "unit": "s", "storageType": "inplace",
		"data": map[string]any{"length": 3, "items": []float64{1, 2, 3}},
	}
	channel := map[string]any{
		"name": "force", "unit": "N", "samplingGridIndex": 0, "storageType": "externalFile",
		"inProcess": true,
		"data": map[string]any{
			"relativeFilePath": "data/test/force.json",
			"md5":              "0123456789abcdef0123456789abcdef",
			"fileEncoding":     "json",
		},
	}
	doc := document(minimalHeader())
	doc["data"] = map[string]any{"samplingGrids": []any{grid}, "dataChannels": []any{channel}}
	require.NoError(t, MustDefault().Validate(doc))

	t.Run("unknown encoding passes validation", func(t *testing.T) {
		channel["data"].(map[string]any)["fileEncoding"] = "csv"
		assert.NoError(t, MustDefault().Validate(doc))
		channel["data"].(map[string]any)["fileEncoding"] = "json"
	})

	t.Run("bad digest", func(t *testing.T) {
		channel["data"].(map[string]any)["md5"] = "XYZ"
		err := MustDefault().Validate(doc)
		assert.Contains(t, violationPaths(t, err), "/data/dataChannels/0/data/md5")
		channel["data"].(map[string]any)["md5"] = "0123456789abcdef0123456789abcdef"
	})

	t.Run("inline payload under external storage type", func(t *testing.T) {
		grid["storageType"] = "externalFile"
		assert.ErrorIs(t, MustDefault().Validate(doc), types.ErrValidation)
		grid["storageType"] = "inplace"
	})

	t.Run("channel without grid index", func(t *testing.T) {
		delete(channel, "samplingGridIndex")
		assert.ErrorIs(t, MustDefault().Validate(doc), types.ErrValidation)
		channel["samplingGridIndex"] = 0
	})
}

func TestValidateJSONRejectsGarbage(t *testing.T) {
	err := MustDefault().ValidateJSON([]byte("not json"))
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestValidateUnencodable(t *testing.T) {
	err := MustDefault().Validate(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	var se *json.UnsupportedTypeError
	assert.True(t, errors.As(err, &se))
}

func TestPointer(t *testing.T) {
	assert.Equal(t, "", pointer(nil))
	assert.Equal(t, "/data/samplingGrids/0", pointer([]string{"data", "samplingGrids", "0"}))
	assert.Equal(t, "/a~1b/c~0d", pointer([]string{"a/b", "c~d"}))
}
