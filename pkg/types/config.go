package types

import (
	"errors"
	"path/filepath"
	"strings"
)

// Config holds the settings of the mrec tool. The record library itself
// needs none of them; they select defaults for the CLI and the catalog.
type Config struct {
	DataDir     string            `json:"data_dir" yaml:"data_dir"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	LazyLoading bool              `json:"lazy_loading" yaml:"lazy_loading"`
	ExternalDir string            `json:"external_dir" yaml:"external_dir"`
	IndexFields map[string]string `json:"index_fields,omitempty" yaml:"index_fields,omitempty"`
}

// Defaults.
const (
	DefaultLogLevel    = "info"
	DefaultExternalDir = "data"
)

// Config validation errors.
var (
	ErrLogLevelUnknown    = errors.New("unknown log level")
	ErrExternalDirInvalid = errors.New("external data directory must be a relative path inside the record directory")
	ErrIndexFieldInvalid  = errors.New("index field needs a name and a JSONPath expression")
)

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. Empty LogLevel and
// ExternalDir mean the defaults.
func (c Config) Validate() error {
	if c.LogLevel != "" && !knownLogLevels[strings.ToLower(c.LogLevel)] {
		return ErrLogLevelUnknown
	}
	if c.ExternalDir != "" && !IsLocalDir(c.ExternalDir) {
		return ErrExternalDirInvalid
	}
	for name, expr := range c.IndexFields {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(expr) == "" {
			return ErrIndexFieldInvalid
		}
	}
	return nil
}

// IsLocalDir reports whether dir is a relative path that stays below the
// directory it is joined to.
func IsLocalDir(dir string) bool {
	if dir == "" || filepath.IsAbs(dir) {
		return false
	}
	return filepath.IsLocal(dir)
}
