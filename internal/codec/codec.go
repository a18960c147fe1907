// Package codec converts payloads between their in-memory form (a sequence
// of numbers) and the two storage representations of the record format:
// inline {length, items} objects and checksummed external JSON files.
//
// The package holds no state. External files are always written as compact
// JSON arrays and verified with an MD5 digest of the bytes on disk.
package codec

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// chunkSize is the read size used when hashing files.
const chunkSize = 8192

// Permissions for created directories and files.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ExternalFileName returns the file name used for an entry stored externally.
func ExternalFileName(name string) string {
	return name + ".json"
}

// ValidEntryName reports whether name can be used as an external file name:
// non-empty, no path separators, and not "." or "..".
func ValidEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Encode produces the storage representation of values.
//
// For StorageInline no I/O happens. For StorageExternal the values are
// written as a compact JSON array to baseDir/relDir/<name>.json, creating
// directories as needed; the checksum is computed by re-reading the file
// from disk.
func Encode(values []float64, kind types.StorageKind, name, baseDir, relDir string) (types.Representation, error) {
	if values == nil {
		values = []float64{}
	}
	switch kind {
	case types.StorageInline:
		return types.Inline{Length: len(values), Items: slices.Clone(values)}, nil
	case types.StorageExternal:
		return encodeExternal(values, name, baseDir, relDir)
	default:
		return nil, fmt.Errorf("%w: unsupported storage type %q", types.ErrStructural, kind)
	}
}

func encodeExternal(values []float64, name, baseDir, relDir string) (types.Representation, error) {
	if !ValidEntryName(name) {
		return nil, fmt.Errorf("%w: %q cannot be used as an external file name", types.ErrStructural, name)
	}
	if !types.IsLocalDir(relDir) {
		return nil, fmt.Errorf("%w: external directory %q must be relative to the record", types.ErrStructural, relDir)
	}

	dir := filepath.Join(baseDir, relDir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create external directory: %w", types.ErrIO, err)
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %q: %w", types.ErrStructural, name, err)
	}

	path := filepath.Join(dir, ExternalFileName(name))
	if err := WriteFileAtomic(path, data, filePerm); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", types.ErrIO, path, err)
	}

	sum, err := Checksum(path)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum %s: %w", types.ErrIO, path, err)
	}

	slog.Debug("codec: wrote external file", "path", path, "md5", sum, "items", len(values))
	return types.ExternalRef{
		RelativeFilePath: filepath.ToSlash(filepath.Join(relDir, ExternalFileName(name))),
		MD5:              sum,
		FileEncoding:     types.EncodingJSON,
	}, nil
}

// Decode returns the values held by rep. baseDir is the directory that
// ExternalRef paths are relative to.
//
// External files are hashed before they are parsed; a digest that differs
// from the stored one fails with a *types.IntegrityError and no data is
// returned.
func Decode(rep types.Representation, baseDir string) ([]float64, error) {
	switch r := rep.(type) {
	case types.Inline:
		// length is informational; items are returned as stored.
		if r.Items == nil {
			return []float64{}, nil
		}
		return slices.Clone(r.Items), nil
	case types.ExternalRef:
		return decodeExternal(r, baseDir)
	case nil:
		return nil, fmt.Errorf("%w: missing storage representation", types.ErrStructural)
	default:
		return nil, fmt.Errorf("%w: unknown storage representation %T", types.ErrStructural, rep)
	}
}

func decodeExternal(ref types.ExternalRef, baseDir string) ([]float64, error) {
	if ref.FileEncoding != types.EncodingJSON {
		return nil, fmt.Errorf("%w: %q (file %s)", types.ErrUnsupportedEncoding, ref.FileEncoding, ref.RelativeFilePath)
	}
	rel := filepath.FromSlash(ref.RelativeFilePath)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("%w: external file path %q leaves the record directory", types.ErrStructural, ref.RelativeFilePath)
	}
	path := filepath.Join(baseDir, rel)

	data, sum, err := readHashed(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: external file %s: %w", types.ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrIO, path, err)
	}
	if !strings.EqualFold(sum, ref.MD5) {
		return nil, &types.IntegrityError{Path: path, Expected: ref.MD5, Actual: sum}
	}

	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse external file %s: %w", types.ErrStructural, path, err)
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		if v == nil {
			return nil, fmt.Errorf("%w: external file %s: element %d is null", types.ErrStructural, path, i)
		}
		values[i] = *v
	}
	slog.Debug("codec: read external file", "path", path, "items", len(values))
	return values, nil
}

// Checksum returns the lowercase hex MD5 digest of the file at path, read
// in fixed-size chunks.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readHashed reads the file once, feeding the same chunks to the digest
// and to the returned buffer.
func readHashed(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	h := md5.New()
	if _, err := io.CopyBuffer(io.MultiWriter(h, &buf), f, make([]byte, chunkSize)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), hex.EncodeToString(h.Sum(nil)), nil
}
