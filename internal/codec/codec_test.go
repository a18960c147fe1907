package codec

import (
	"crypto/md5"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestEncodeInline(t *testing.T) {
	dir := t.TempDir()
	rep, err := Encode([]float64{1, 2, 3}, types.StorageInline, "grid", dir, "data/test")
	require.NoError(t, err)

	inline, ok := rep.(types.Inline)
	require.True(t, ok, "expected types.Inline, got %T", rep)
	assert.Equal(t, 3, inline.Length)
	assert.Equal(t, []float64{1, 2, 3}, inline.Items)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "inline encoding must not touch the file system")
}

func TestEncodeInlineNil(t *testing.T) {
	rep, err := Encode(nil, types.StorageInline, "grid", "", "data")
	require.NoError(t, err)
	inline := rep.(types.Inline)
	assert.Equal(t, 0, inline.Length)
	assert.NotNil(t, inline.Items)
}

func TestEncodeExternal(t *testing.T) {
	dir := t.TempDir()
	rep, err := Encode([]float64{0.1, 0.2, 0.112}, types.StorageExternal, "mockup data", dir, filepath.Join("data", "test"))
	require.NoError(t, err)

	ref, ok := rep.(types.ExternalRef)
	require.True(t, ok, "expected types.ExternalRef, got %T", rep)
	assert.Equal(t, "data/test/mockup data.json", ref.RelativeFilePath)
	assert.Equal(t, types.EncodingJSON, ref.FileEncoding)

	content, err := os.ReadFile(filepath.Join(dir, "data", "test", "mockup data.json"))
	require.NoError(t, err)
	assert.Equal(t, "[0.1,0.2,0.112]", string(content))
	assert.Equal(t, md5Hex(content), ref.MD5)
}

func TestEncodeExternalEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := Encode(nil, types.StorageExternal, "empty", dir, "data")
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(dir, "data", "empty.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))
}

func TestEncodeRejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		kind    types.StorageKind
		entry   string
		relDir  string
		wantErr error
	}{
		{"unknown kind", types.StorageKind("hdf5"), "x", "data", types.ErrStructural},
		{"separator in name", types.StorageExternal, "a/b", "data", types.ErrStructural},
		{"dot dot name", types.StorageExternal, "..", "data", types.ErrStructural},
		{"empty name", types.StorageExternal, "", "data", types.ErrStructural},
		{"escaping dir", types.StorageExternal, "x", "../data", types.ErrStructural},
		{"absolute dir", types.StorageExternal, "x", "/tmp/data", types.ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode([]float64{1}, tt.kind, tt.entry, dir, tt.relDir)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncodeExternalIOError(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the data directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0o644))
	_, err := Encode([]float64{1}, types.StorageExternal, "x", dir, "data")
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestDecodeInline(t *testing.T) {
	values, err := Decode(types.Inline{Length: 2, Items: []float64{4, 5}}, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, values)

	values, err = Decode(types.Inline{Length: 5, Items: []float64{4, 5}}, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, values)

	_, err = Decode(nil, "")
	assert.ErrorIs(t, err, types.ErrStructural)
}

func TestDecodeExternalMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"null element", "[1,null,3]", "element 1 is null"},
		{"string element", `[1,"a"]`, "parse external file"},
		{"not an array", `{"a":1}`, "parse external file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			data := []byte(tt.content)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "values.json"), data, 0o644))

			ref := types.ExternalRef{RelativeFilePath: "values.json", MD5: md5Hex(data), FileEncoding: types.EncodingJSON}
			values, err := Decode(ref, dir)
			require.ErrorIs(t, err, types.ErrStructural)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Nil(t, values)
		})
	}
}

func TestExternalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := []float64{-1.5, 0, 3e-9, 42}
	rep, err := Encode(want, types.StorageExternal, "force", dir, "data/run")
	require.NoError(t, err)

	got, err := Decode(rep, dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	rep, err := Encode([]float64{0.1, 0.2, 0.112}, types.StorageExternal, "mockup data", dir, "data/test")
	require.NoError(t, err)

	path := filepath.Join(dir, "data", "test", "mockup data.json")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content[1] = '9' // [0.1,... -> [9.1,...
	require.NoError(t, os.WriteFile(path, content, 0o644))

	values, err := Decode(rep, dir)
	require.Error(t, err)
	assert.Nil(t, values)
	assert.ErrorIs(t, err, types.ErrIntegrity)

	var ie *types.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, rep.(types.ExternalRef).MD5, ie.Expected)
	assert.Equal(t, md5Hex(content), ie.Actual)
}

func TestDecodeMissingFile(t *testing.T) {
	ref := types.ExternalRef{RelativeFilePath: "data/none.json", MD5: strings.Repeat("0", 32), FileEncoding: "json"}
	_, err := Decode(ref, t.TempDir())
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDecodeUnsupportedEncoding(t *testing.T) {
	dir := t.TempDir()
	rep, err := Encode([]float64{1}, types.StorageExternal, "x", dir, "data")
	require.NoError(t, err)
	ref := rep.(types.ExternalRef)
	ref.FileEncoding = "csv"

	_, err = Decode(ref, dir)
	assert.ErrorIs(t, err, types.ErrUnsupportedEncoding)
}

func TestDecodeRejectsEscapingPath(t *testing.T) {
	ref := types.ExternalRef{RelativeFilePath: "../outside.json", MD5: strings.Repeat("0", 32), FileEncoding: "json"}
	_, err := Decode(ref, t.TempDir())
	assert.ErrorIs(t, err, types.ErrStructural)
}

func TestDecodeUppercaseDigest(t *testing.T) {
	dir := t.TempDir()
	rep, err := Encode([]float64{7}, types.StorageExternal, "x", dir, "data")
	require.NoError(t, err)
	ref := rep.(types.ExternalRef)
	ref.MD5 = strings.ToUpper(ref.MD5)

	got, err := Decode(ref, dir)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, got)
}

func TestChecksumLargeFile(t *testing.T) {
	// Larger than one chunk so the digest spans several reads.
	content := []byte(strings.Repeat("0123456789", 3*chunkSize/10+7))
	path := filepath.Join(t.TempDir(), "big.json")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, md5Hex(content), sum)

	data, sum2, err := readHashed(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, sum, sum2)
}

func TestValidEntryName(t *testing.T) {
	for _, name := range []string{"a", "mockup data", "sin", "grid 1", "x.y"} {
		assert.True(t, ValidEntryName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.False(t, ValidEntryName(name), name)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "no", "such", "doc.json"), []byte("x"), 0o644)
	assert.Error(t, err)
}
