package types

import (
	"errors"
	"testing"
)

func TestParseStorageKind(t *testing.T) {
	tests := []struct {
		in      string
		want    StorageKind
		wantErr error
	}{
		{"inplace", StorageInline, nil},
		{"inline", StorageInline, nil},
		{"externalFile", StorageExternal, nil},
		{"external", StorageExternal, nil},
		{" EXTERNALFILE ", StorageExternal, nil},
		{"", "", ErrStructural},
		{"hdf5", "", ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStorageKind(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseStorageKind(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStorageKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStorageKindIsValid(t *testing.T) {
	if !StorageInline.IsValid() || !StorageExternal.IsValid() {
		t.Error("known storage kinds must be valid")
	}
	if StorageKind("inline").IsValid() {
		t.Error("short form is not a document storage type")
	}
}

func TestRepresentationKind(t *testing.T) {
	var rep Representation = Inline{Length: 1, Items: []float64{1}}
	if rep.Kind() != StorageInline {
		t.Errorf("Inline.Kind() = %q", rep.Kind())
	}
	rep = ExternalRef{RelativeFilePath: "data/x/a.json", MD5: "00", FileEncoding: EncodingJSON}
	if rep.Kind() != StorageExternal {
		t.Errorf("ExternalRef.Kind() = %q", rep.Kind())
	}
}
