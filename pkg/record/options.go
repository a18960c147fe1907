package record

import (
	"fmt"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// entrySettings collects the optional attributes of a grid or channel.
type entrySettings struct {
	storage   types.StorageKind
	notes     string
	inProcess bool
}

func defaultEntrySettings() entrySettings {
	return entrySettings{storage: types.StorageInline, inProcess: true}
}

// Option sets an optional attribute of a sampling grid or data channel.
type Option func(*entrySettings) error

// WithStorage selects inline (default) or external storage.
func WithStorage(kind types.StorageKind) Option {
	return func(s *entrySettings) error {
		if !kind.IsValid() {
			return fmt.Errorf("%w: unsupported storage type %q", types.ErrStructural, kind)
		}
		s.storage = kind
		return nil
	}
}

// WithStorageType is like WithStorage but parses the storage type from a
// string such as "inplace", "externalFile", "inline" or "external".
func WithStorageType(s string) Option {
	return func(es *entrySettings) error {
		kind, err := types.ParseStorageKind(s)
		if err != nil {
			return err
		}
		es.storage = kind
		return nil
	}
}

// WithNotes attaches a free-text note.
func WithNotes(notes string) Option {
	return func(s *entrySettings) error {
		s.notes = notes
		return nil
	}
}

// WithInProcess marks whether a data channel was measured during the
// process (default true) or ex situ. Sampling grids ignore it.
func WithInProcess(inProcess bool) Option {
	return func(s *entrySettings) error {
		s.inProcess = inProcess
		return nil
	}
}

type loadSettings struct {
	lazy bool
}

// LoadOption configures FromFile.
type LoadOption func(*loadSettings)

// WithLazyLoading defers reading external payloads until a channel is
// requested with GetDataChannel or LoadAll is called.
func WithLazyLoading(lazy bool) LoadOption {
	return func(s *loadSettings) {
		s.lazy = lazy
	}
}
