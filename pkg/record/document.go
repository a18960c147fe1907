package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// document is the primary file layout.
type document struct {
	Schema string         `json:"$schema"`
	Header map[string]any `json:"header"`
	Data   dataSection    `json:"data"`
}

type dataSection struct {
	SamplingGrids []gridJSON    `json:"samplingGrids"`
	DataChannels  []channelJSON `json:"dataChannels"`
}

type gridJSON struct {
	Name        string            `json:"name"`
	Unit        string            `json:"unit"`
	StorageType types.StorageKind `json:"storageType"`
	Data        json.RawMessage   `json:"data"`
	Notes       string            `json:"notes,omitempty"`
}

type channelJSON struct {
	Name              string            `json:"name"`
	Unit              string            `json:"unit"`
	SamplingGridIndex int               `json:"samplingGridIndex"`
	StorageType       types.StorageKind `json:"storageType"`
	InProcess         bool              `json:"inProcess"`
	Data              json.RawMessage   `json:"data"`
	Notes             string            `json:"notes,omitempty"`
}

// marshalDocument renders doc with two-space indentation. Non-ASCII and
// HTML-significant characters are written literally.
func marshalDocument(doc document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalDocument decodes a primary file. Header numbers are kept as
// json.Number so integers survive a read/write cycle unchanged.
func unmarshalDocument(b []byte) (document, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return document{}, err
	}
	return doc, nil
}

// parseRepresentation decodes the data object of an entry according to its
// storage type.
func parseRepresentation(kind types.StorageKind, raw json.RawMessage) (types.Representation, error) {
	switch kind {
	case types.StorageInline:
		var in types.Inline
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("%w: inline data: %w", types.ErrStructural, err)
		}
		return in, nil
	case types.StorageExternal:
		var ref types.ExternalRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, fmt.Errorf("%w: external reference: %w", types.ErrStructural, err)
		}
		return ref, nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage type %q", types.ErrStructural, kind)
	}
}
