package types

import (
	"fmt"
	"strings"
)

// StorageKind selects where the payload of a grid or channel is kept.
// The constant values are the storageType strings of the document format.
type StorageKind string

// Storage kinds.
const (
	StorageInline   StorageKind = "inplace"
	StorageExternal StorageKind = "externalFile"
)

// EncodingJSON is the only external file encoding this version understands.
const EncodingJSON = "json"

// IsValid reports whether k is a recognized storage kind.
func (k StorageKind) IsValid() bool {
	return k == StorageInline || k == StorageExternal
}

// ParseStorageKind accepts the document spellings ("inplace", "externalFile")
// and the short forms ("inline", "external"). Matching is case-insensitive.
// Returns ErrStructural for anything else.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inplace", "inline":
		return StorageInline, nil
	case "externalfile", "external":
		return StorageExternal, nil
	default:
		return "", fmt.Errorf("%w: unsupported storage type %q", ErrStructural, s)
	}
}

// Representation is the on-disk form of a payload. It is either Inline or
// ExternalRef; no other implementations exist.
type Representation interface {
	// Kind returns the storage kind this representation belongs to.
	Kind() StorageKind
	isRepresentation()
}

// Inline embeds the payload directly in the primary document.
type Inline struct {
	Length int       `json:"length"`
	Items  []float64 `json:"items"`
}

// ExternalRef points to a sibling file holding the payload.
// RelativeFilePath is slash-separated and relative to the directory of the
// primary document. MD5 is the lowercase hex digest of the file bytes.
type ExternalRef struct {
	RelativeFilePath string `json:"relativeFilePath"`
	MD5              string `json:"md5"`
	FileEncoding     string `json:"fileEncoding"`
}

func (Inline) Kind() StorageKind      { return StorageInline }
func (ExternalRef) Kind() StorageKind { return StorageExternal }

func (Inline) isRepresentation()      {}
func (ExternalRef) isRepresentation() {}
