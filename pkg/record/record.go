// Package record implements the measurement record: a JSON document with a
// schema-validated header, sampling grids and data channels whose payloads
// are stored inline or in checksummed external files.
//
// A Record is built with New and the Add methods and saved with Write, or
// loaded with FromFile. Grids and channels can only be appended, so a
// channel's sampling grid index stays valid for the lifetime of the record.
//
// A Record is not safe for concurrent use.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/mrec/internal/codec"
	"github.com/mesh-intelligence/mrec/internal/schema"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

// entry is the common part of sampling grids and data channels.
type entry struct {
	name    string
	unit    string
	storage types.StorageKind
	notes   string

	values []float64
	lazy   *codec.LazyRef // non-nil while the payload is pending
	stored types.Representation
}

type channelEntry struct {
	entry
	gridIndex int
	inProcess bool
}

// load materializes a pending payload. A failure leaves the entry pending.
func (e *entry) load() error {
	if e.lazy == nil {
		return nil
	}
	values, err := e.lazy.Resolve()
	if err != nil {
		return fmt.Errorf("load %q: %w", e.name, err)
	}
	e.values = values
	e.lazy = nil
	return nil
}

func (e *entry) gridSnapshot() types.SamplingGrid {
	return types.SamplingGrid{
		Name:    e.name,
		Unit:    e.unit,
		Storage: e.storage,
		Notes:   e.notes,
		Data:    slices.Clone(e.values),
		Pending: e.lazy != nil,
		Stored:  e.stored,
	}
}

func (c *channelEntry) snapshot() types.DataChannel {
	return types.DataChannel{
		Name:              c.name,
		Unit:              c.unit,
		SamplingGridIndex: c.gridIndex,
		Storage:           c.storage,
		InProcess:         c.inProcess,
		Notes:             c.notes,
		Data:              slices.Clone(c.values),
		Pending:           c.lazy != nil,
		Stored:            c.stored,
	}
}

// Record is the in-memory form of a measurement record.
type Record struct {
	// Header is the free-form metadata block. It must conform to the
	// schema before the record can be written.
	Header map[string]any

	grids    []*entry
	channels []*channelEntry

	schemaID    string
	baseDir     string
	externalDir string
	dataDir     string
}

// New returns an empty record. Its header does not validate until the
// required fields are filled in.
func New() *Record {
	return &Record{
		Header:      map[string]any{},
		externalDir: types.DefaultExternalDir,
	}
}

// SchemaID returns the $schema of the file the record was last read from
// or written to; empty before.
func (r *Record) SchemaID() string { return r.schemaID }

// BaseDir returns the directory of the primary file after Write or
// FromFile; empty before.
func (r *Record) BaseDir() string { return r.baseDir }

// ExternalDir returns the directory name, relative to BaseDir, below which
// external files are written. Defaults to "data".
func (r *Record) ExternalDir() string { return r.externalDir }

// DataDir returns the directory, relative to BaseDir, that the last Write
// placed external files in: ExternalDir joined with the file stem.
func (r *Record) DataDir() string { return r.dataDir }

// SetExternalDir changes the external directory name used by later writes.
func (r *Record) SetExternalDir(dir string) error {
	if !types.IsLocalDir(dir) {
		return fmt.Errorf("%w: external directory %q must be a relative path", types.ErrStructural, dir)
	}
	r.externalDir = filepath.Clean(dir)
	return nil
}

func buildEntry(name, unit string, data []float64, opts []Option) (entry, entrySettings, error) {
	s := defaultEntrySettings()
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return entry{}, s, err
		}
	}
	if s.storage == types.StorageExternal && !codec.ValidEntryName(name) {
		return entry{}, s, fmt.Errorf("%w: %q cannot be used as an external file name", types.ErrStructural, name)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return entry{}, s, fmt.Errorf("%w: %q sample %d is not a finite number", types.ErrStructural, name, i)
		}
	}
	values := slices.Clone(data)
	if values == nil {
		values = []float64{}
	}
	return entry{name: name, unit: unit, storage: s.storage, notes: s.notes, values: values}, s, nil
}

// AddSamplingGrid appends a sampling grid and returns its index. The data
// is copied.
func (r *Record) AddSamplingGrid(name, unit string, data []float64, opts ...Option) (int, error) {
	e, _, err := buildEntry(name, unit, data, opts)
	if err != nil {
		return -1, fmt.Errorf("add sampling grid: %w", err)
	}
	r.grids = append(r.grids, &e)
	return len(r.grids) - 1, nil
}

// AddDataChannel appends a data channel sampled over the grid at gridIndex,
// which must already exist. The data is copied.
func (r *Record) AddDataChannel(name, unit string, gridIndex int, data []float64, opts ...Option) error {
	if gridIndex < 0 || gridIndex >= len(r.grids) {
		return fmt.Errorf("add data channel: %w: sampling grid index %d does not exist (have %d)",
			types.ErrStructural, gridIndex, len(r.grids))
	}
	e, s, err := buildEntry(name, unit, data, opts)
	if err != nil {
		return fmt.Errorf("add data channel: %w", err)
	}
	r.channels = append(r.channels, &channelEntry{entry: e, gridIndex: gridIndex, inProcess: s.inProcess})
	return nil
}

// AddParameter appends a process parameter to header.process.parameters.
// The value type is derived from value (see types.ParameterValueType); the
// header must already contain a process object.
func (r *Record) AddParameter(name string, value any, unit, symbol string) error {
	valueType, err := types.ParameterValueType(value)
	if err != nil {
		return fmt.Errorf("add parameter %q: %w", name, err)
	}
	process, ok := r.Header["process"].(map[string]any)
	if !ok {
		return fmt.Errorf("add parameter %q: %w: header has no process object", name, types.ErrStructural)
	}

	var params []any
	switch p := process["parameters"].(type) {
	case nil:
	case []any:
		params = p
	case []map[string]any:
		params = make([]any, len(p))
		for i, m := range p {
			params[i] = m
		}
	default:
		return fmt.Errorf("add parameter %q: %w: header process parameters is %T, not a list", name, types.ErrStructural, p)
	}

	process["parameters"] = append(params, map[string]any{
		"name":      name,
		"unit":      unit,
		"symbol":    symbol,
		"value":     types.CloneParameterValue(value),
		"valueType": valueType,
	})
	return nil
}

// ValidateHeader checks the header alone against the schema, with empty
// data sections.
func (r *Record) ValidateHeader() error {
	v, err := schema.Default()
	if err != nil {
		return err
	}
	doc := document{
		Schema: v.ID(),
		Header: r.Header,
		Data:   dataSection{SamplingGrids: []gridJSON{}, DataChannels: []channelJSON{}},
	}
	return v.Validate(doc)
}

// Write saves the record to path. External payloads go to
// <dir>/<ExternalDir>/<stem>/<name>.json. The complete document is
// validated before the primary file is written, and the primary file is
// replaced atomically, so a failed Write never leaves a partial file at
// path. On failure the in-memory record is unchanged.
func (r *Record) Write(path string) error {
	v, err := schema.Default()
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dataDir := filepath.Join(r.externalDir, stem)

	if err := r.checkExternalNames(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// Pending payloads of a lazily loaded record must be read before their
	// files can be rewritten.
	if err := r.LoadAll(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w: %w", path, types.ErrIO, err)
	}

	reps := make([]types.Representation, 0, len(r.grids)+len(r.channels))
	encode := func(e *entry) (json.RawMessage, error) {
		rep, err := codec.Encode(e.values, e.storage, e.name, baseDir, dataDir)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.name, err)
		}
		raw, err := json.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.name, err)
		}
		reps = append(reps, rep)
		return raw, nil
	}

	doc := document{
		Schema: v.ID(),
		Header: r.Header,
		Data: dataSection{
			SamplingGrids: make([]gridJSON, 0, len(r.grids)),
			DataChannels:  make([]channelJSON, 0, len(r.channels)),
		},
	}
	for _, g := range r.grids {
		raw, err := encode(g)
		if err != nil {
			return fmt.Errorf("write %s: sampling grid: %w", path, err)
		}
		doc.Data.SamplingGrids = append(doc.Data.SamplingGrids, gridJSON{
			Name: g.name, Unit: g.unit, StorageType: g.storage, Data: raw, Notes: g.notes,
		})
	}
	for _, c := range r.channels {
		raw, err := encode(&c.entry)
		if err != nil {
			return fmt.Errorf("write %s: data channel: %w", path, err)
		}
		doc.Data.DataChannels = append(doc.Data.DataChannels, channelJSON{
			Name: c.name, Unit: c.unit, SamplingGridIndex: c.gridIndex, StorageType: c.storage,
			InProcess: c.inProcess, Data: raw, Notes: c.notes,
		})
	}

	b, err := marshalDocument(doc)
	if err != nil {
		return fmt.Errorf("write %s: encode document: %w", path, err)
	}
	if err := v.ValidateJSON(b); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := codec.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", path, types.ErrIO, err)
	}

	i := 0
	for _, g := range r.grids {
		g.stored = reps[i]
		i++
	}
	for _, c := range r.channels {
		c.stored = reps[i]
		i++
	}
	r.schemaID = v.ID()
	r.baseDir = baseDir
	r.dataDir = dataDir

	slog.Debug("record: wrote", "path", path, "grids", len(r.grids), "channels", len(r.channels))
	return nil
}

// checkExternalNames rejects two externally stored entries with the same
// name; they would share one file.
func (r *Record) checkExternalNames() error {
	seen := make(map[string]bool)
	check := func(e *entry) error {
		if e.storage != types.StorageExternal {
			return nil
		}
		if seen[e.name] {
			return fmt.Errorf("%w: more than one externally stored entry is named %q", types.ErrStructural, e.name)
		}
		seen[e.name] = true
		return nil
	}
	for _, g := range r.grids {
		if err := check(g); err != nil {
			return err
		}
	}
	for _, c := range r.channels {
		if err := check(&c.entry); err != nil {
			return err
		}
	}
	return nil
}

// FromFile reads and validates the record at path. Inline payloads are
// always materialized. External payloads are read and verified
// immediately, or, with WithLazyLoading(true), on first access.
func FromFile(path string, opts ...LoadOption) (*Record, error) {
	var s loadSettings
	for _, opt := range opts {
		opt(&s)
	}
	v, err := schema.Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w: %w", path, types.ErrNotFound, err)
		}
		return nil, fmt.Errorf("read %s: %w: %w", path, types.ErrIO, err)
	}
	if err := v.ValidateJSON(b); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := unmarshalDocument(b)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, types.ErrStructural, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, types.ErrIO, err)
	}
	baseDir := filepath.Dir(abs)

	r := New()
	r.Header = doc.Header
	r.schemaID = doc.Schema
	r.baseDir = baseDir

	load := func(kind types.StorageKind, raw json.RawMessage, name string) (entry, error) {
		rep, err := parseRepresentation(kind, raw)
		if err != nil {
			return entry{}, err
		}
		e := entry{name: name, storage: kind, stored: rep}
		if ref, ok := rep.(types.ExternalRef); ok && s.lazy {
			e.lazy = codec.NewLazyRef(ref, baseDir)
			return e, nil
		}
		e.values, err = codec.Decode(rep, baseDir)
		if err != nil {
			return entry{}, err
		}
		return e, nil
	}

	for i, g := range doc.Data.SamplingGrids {
		e, err := load(g.StorageType, g.Data, g.Name)
		if err != nil {
			return nil, fmt.Errorf("read %s: sampling grid %d (%q): %w", path, i, g.Name, err)
		}
		e.unit, e.notes = g.Unit, g.Notes
		r.grids = append(r.grids, &e)
	}
	for i, c := range doc.Data.DataChannels {
		if c.SamplingGridIndex >= len(r.grids) {
			return nil, fmt.Errorf("read %s: data channel %d (%q): %w: sampling grid index %d does not exist (have %d)",
				path, i, c.Name, types.ErrStructural, c.SamplingGridIndex, len(r.grids))
		}
		e, err := load(c.StorageType, c.Data, c.Name)
		if err != nil {
			return nil, fmt.Errorf("read %s: data channel %d (%q): %w", path, i, c.Name, err)
		}
		e.unit, e.notes = c.Unit, c.Notes
		r.channels = append(r.channels, &channelEntry{entry: e, gridIndex: c.SamplingGridIndex, inProcess: c.InProcess})
	}

	slog.Debug("record: read", "path", path, "lazy", s.lazy, "grids", len(r.grids), "channels", len(r.channels))
	return r, nil
}

// GetDataChannel returns the first channel named name together with its
// sampling grid. Pending payloads of both are loaded first, so the returned
// data is always materialized.
func (r *Record) GetDataChannel(name string) (types.DataChannel, types.SamplingGrid, error) {
	for _, c := range r.channels {
		if c.name != name {
			continue
		}
		grid := r.grids[c.gridIndex]
		if err := c.load(); err != nil {
			return types.DataChannel{}, types.SamplingGrid{}, fmt.Errorf("data channel: %w", err)
		}
		if err := grid.load(); err != nil {
			return types.DataChannel{}, types.SamplingGrid{}, fmt.Errorf("sampling grid: %w", err)
		}
		return c.snapshot(), grid.gridSnapshot(), nil
	}
	return types.DataChannel{}, types.SamplingGrid{}, fmt.Errorf("%w: no data channel named %q", types.ErrNotFound, name)
}

// DataChannelNames returns the channel names in insertion order.
func (r *Record) DataChannelNames() []string {
	names := make([]string, len(r.channels))
	for i, c := range r.channels {
		names[i] = c.name
	}
	return names
}

// SamplingGrids returns snapshots of all sampling grids in insertion order.
// Pending payloads are not loaded.
func (r *Record) SamplingGrids() []types.SamplingGrid {
	out := make([]types.SamplingGrid, len(r.grids))
	for i, g := range r.grids {
		out[i] = g.gridSnapshot()
	}
	return out
}

// DataChannels returns snapshots of all data channels in insertion order.
// Pending payloads are not loaded.
func (r *Record) DataChannels() []types.DataChannel {
	out := make([]types.DataChannel, len(r.channels))
	for i, c := range r.channels {
		out[i] = c.snapshot()
	}
	return out
}

// LoadAll loads every pending payload. Entries that fail stay pending; the
// returned error joins all failures.
func (r *Record) LoadAll() error {
	var errs []error
	for i, g := range r.grids {
		if err := g.load(); err != nil {
			errs = append(errs, fmt.Errorf("sampling grid %d: %w", i, err))
		}
	}
	for i, c := range r.channels {
		if err := c.load(); err != nil {
			errs = append(errs, fmt.Errorf("data channel %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
