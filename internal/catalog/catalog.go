// Package catalog keeps a SQLite index of measurement records: one row per
// record file, one per sampling grid and data channel, plus selected header
// fields. Records are loaded lazily for indexing, so external payload files
// are never read.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/mrec/pkg/record"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// DBFile is the catalog file name inside the data directory.
const DBFile = "catalog.db"

// Entry kinds.
const (
	KindGrid    = "grid"
	KindChannel = "channel"
)

// ErrClosed is returned by operations on a closed catalog.
var ErrClosed = errors.New("catalog is closed")

// RecordInfo describes one indexed record file.
type RecordInfo struct {
	Path      string            `json:"path"`
	Schema    string            `json:"schema"`
	Grids     int               `json:"grids"`
	Channels  int               `json:"channels"`
	ScanID    string            `json:"scan_id,omitempty"`
	IndexedAt time.Time         `json:"indexed_at"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ChannelInfo describes one indexed data channel. Samples is -1 for
// externally stored channels, whose files are not read while indexing.
type ChannelInfo struct {
	Path             string            `json:"path"`
	Position         int               `json:"position"`
	Name             string            `json:"name"`
	Unit             string            `json:"unit"`
	Storage          types.StorageKind `json:"storage_type"`
	GridIndex        int               `json:"sampling_grid_index"`
	GridName         string            `json:"sampling_grid"`
	InProcess        bool              `json:"in_process"`
	Samples          int               `json:"samples"`
	RelativeFilePath string            `json:"relative_file_path,omitempty"`
	MD5              string            `json:"md5,omitempty"`
}

// ScanResult summarizes an IndexDir run.
type ScanResult struct {
	ID         string    `json:"scan_id"`
	Root       string    `json:"root"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Catalog is a SQLite-backed record index. It is safe for concurrent use.
type Catalog struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	fields map[string]jp.Expr
}

// Open opens or creates the catalog database at dbPath. fields maps a field
// name to a JSONPath expression evaluated against each record header.
func Open(dbPath string, fields map[string]string) (*Catalog, error) {
	compiled := make(map[string]jp.Expr, len(fields))
	for name, expr := range fields {
		if strings.TrimSpace(name) == "" {
			return nil, types.ErrIndexFieldInvalid
		}
		x, err := jp.ParseString(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", types.ErrIndexFieldInvalid, name, err)
		}
		compiled[name] = x
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating catalog directory: %w", types.ErrIO, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening catalog: %w", types.ErrIO, err)
	}
	// A single connection keeps PRAGMA foreign_keys in effect for every
	// statement.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", types.ErrIO, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating catalog schema: %w", types.ErrIO, err)
	}
	slog.Debug("catalog: opened", "path", dbPath, "fields", len(compiled))
	return &Catalog{db: db, path: dbPath, fields: compiled}, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// Close releases the database. Close is idempotent.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// IndexFile loads the record at path without reading external payloads and
// replaces its catalog rows.
func (c *Catalog) IndexFile(ctx context.Context, path string) (RecordInfo, error) {
	return c.indexFile(ctx, path, "")
}

func (c *Catalog) indexFile(ctx context.Context, path, scanID string) (RecordInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return RecordInfo{}, fmt.Errorf("%w: %w", types.ErrIO, err)
	}
	rec, err := record.FromFile(abs, record.WithLazyLoading(true))
	if err != nil {
		return RecordInfo{}, err
	}

	info := RecordInfo{
		Path:      abs,
		Schema:    rec.SchemaID(),
		Grids:     len(rec.SamplingGrids()),
		Channels:  len(rec.DataChannels()),
		ScanID:    scanID,
		IndexedAt: time.Now().UTC(),
		Fields:    make(map[string]string),
	}
	for name, x := range c.fields {
		if v, ok := fieldValue(rec.Header, x); ok {
			info.Fields[name] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return RecordInfo{}, ErrClosed
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordInfo{}, fmt.Errorf("%w: begin index transaction: %w", types.ErrIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, abs); err != nil {
		return RecordInfo{}, fmt.Errorf("%w: clearing %s: %w", types.ErrIO, abs, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (path, schema_id, grid_count, channel_count, scan_id, indexed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		abs, info.Schema, info.Grids, info.Channels, nullString(scanID), info.IndexedAt.Format(time.RFC3339Nano),
	); err != nil {
		return RecordInfo{}, fmt.Errorf("%w: inserting record %s: %w", types.ErrIO, abs, err)
	}

	const insertEntry = `INSERT INTO entries
(path, kind, position, name, unit, storage_type, grid_index, in_process, samples, relative_file_path, md5, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, g := range rec.SamplingGrids() {
		samples, relPath, sum := storedColumns(g.Stored)
		if _, err := tx.ExecContext(ctx, insertEntry,
			abs, KindGrid, i, g.Name, g.Unit, string(g.Storage), nil, nil, samples, relPath, sum, nullString(g.Notes),
		); err != nil {
			return RecordInfo{}, fmt.Errorf("%w: inserting grid %q: %w", types.ErrIO, g.Name, err)
		}
	}
	for i, ch := range rec.DataChannels() {
		samples, relPath, sum := storedColumns(ch.Stored)
		if _, err := tx.ExecContext(ctx, insertEntry,
			abs, KindChannel, i, ch.Name, ch.Unit, string(ch.Storage), ch.SamplingGridIndex, ch.InProcess, samples, relPath, sum, nullString(ch.Notes),
		); err != nil {
			return RecordInfo{}, fmt.Errorf("%w: inserting channel %q: %w", types.ErrIO, ch.Name, err)
		}
	}
	for name, value := range info.Fields {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_fields (path, field, value) VALUES (?, ?, ?)`, abs, name, value,
		); err != nil {
			return RecordInfo{}, fmt.Errorf("%w: inserting field %q: %w", types.ErrIO, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RecordInfo{}, fmt.Errorf("%w: commit index transaction: %w", types.ErrIO, err)
	}
	slog.Debug("catalog: indexed", "path", abs, "grids", info.Grids, "channels", info.Channels)
	return info, nil
}

// IndexDir walks root and indexes every *.json file that is a valid record.
// Other JSON files, including external payload files, are skipped. Hidden
// files and directories are not visited. The run is recorded as a scan with
// a UUID v7 id.
func (c *Catalog) IndexDir(ctx context.Context, root string) (ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %w", types.ErrIO, err)
	}
	res := ScanResult{ID: generateUUID(), Root: absRoot, StartedAt: time.Now().UTC()}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != absRoot && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		if _, err := c.indexFile(ctx, path, res.ID); err != nil {
			if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Debug("catalog: skipped", "path", path, "error", err)
			res.Skipped++
			return nil
		}
		res.Indexed++
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: %w", types.ErrNotFound, walkErr)
		}
		return res, fmt.Errorf("index %s: %w", absRoot, walkErr)
	}
	res.FinishedAt = time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return res, ErrClosed
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO scans (scan_id, root, indexed, skipped, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.Root, res.Indexed, res.Skipped,
		res.StartedAt.Format(time.RFC3339Nano), res.FinishedAt.Format(time.RFC3339Nano),
	); err != nil {
		return res, fmt.Errorf("%w: recording scan: %w", types.ErrIO, err)
	}
	slog.Info("catalog: scan finished", "scan_id", res.ID, "root", absRoot, "indexed", res.Indexed, "skipped", res.Skipped)
	return res, nil
}

// Records lists all indexed records ordered by path.
func (c *Catalog) Records(ctx context.Context) ([]RecordInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrClosed
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT path, schema_id, grid_count, channel_count, scan_id, indexed_at FROM records ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", types.ErrIO, err)
	}
	defer rows.Close()

	var out []RecordInfo
	byPath := make(map[string]int)
	for rows.Next() {
		var (
			info      RecordInfo
			scanID    sql.NullString
			indexedAt string
		)
		if err := rows.Scan(&info.Path, &info.Schema, &info.Grids, &info.Channels, &scanID, &indexedAt); err != nil {
			return nil, fmt.Errorf("%w: scan record row: %w", types.ErrIO, err)
		}
		info.ScanID = scanID.String
		info.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
		info.Fields = make(map[string]string)
		byPath[info.Path] = len(out)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", types.ErrIO, err)
	}

	frows, err := c.db.QueryContext(ctx, `SELECT path, field, value FROM record_fields`)
	if err != nil {
		return nil, fmt.Errorf("%w: query fields: %w", types.ErrIO, err)
	}
	defer frows.Close()
	for frows.Next() {
		var path, field, value string
		if err := frows.Scan(&path, &field, &value); err != nil {
			return nil, fmt.Errorf("%w: scan field row: %w", types.ErrIO, err)
		}
		if i, ok := byPath[path]; ok {
			out[i].Fields[field] = value
		}
	}
	return out, frows.Err()
}

// FindChannels returns the indexed channels whose name matches pattern.
// The pattern uses SQLite GLOB syntax; a plain name matches exactly.
func (c *Catalog) FindChannels(ctx context.Context, pattern string) ([]ChannelInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrClosed
	}

	rows, err := c.db.QueryContext(ctx, `
SELECT ch.path, ch.position, ch.name, ch.unit, ch.storage_type, ch.grid_index, ch.in_process,
       ch.samples, ch.relative_file_path, ch.md5, COALESCE(g.name, '')
FROM entries ch
LEFT JOIN entries g ON g.path = ch.path AND g.kind = ? AND g.position = ch.grid_index
WHERE ch.kind = ? AND ch.name GLOB ?
ORDER BY ch.path, ch.position`, KindGrid, KindChannel, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: query channels: %w", types.ErrIO, err)
	}
	defer rows.Close()

	var out []ChannelInfo
	for rows.Next() {
		var (
			ch        ChannelInfo
			storage   string
			inProcess bool
			relPath   sql.NullString
			sum       sql.NullString
		)
		if err := rows.Scan(&ch.Path, &ch.Position, &ch.Name, &ch.Unit, &storage, &ch.GridIndex, &inProcess,
			&ch.Samples, &relPath, &sum, &ch.GridName); err != nil {
			return nil, fmt.Errorf("%w: scan channel row: %w", types.ErrIO, err)
		}
		ch.Storage = types.StorageKind(storage)
		ch.InProcess = inProcess
		ch.RelativeFilePath = relPath.String
		ch.MD5 = sum.String
		out = append(out, ch)
	}
	return out, rows.Err()
}

// FieldNames returns the configured header field names, sorted.
func (c *Catalog) FieldNames() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// storedColumns extracts the sample count, external path and digest of a
// stored representation.
func storedColumns(rep types.Representation) (samples int, relPath, sum any) {
	switch r := rep.(type) {
	case types.Inline:
		return r.Length, nil, nil
	case types.ExternalRef:
		return -1, r.RelativeFilePath, r.MD5
	default:
		return -1, nil, nil
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// generateUUID generates a UUID v7 for scan ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
