package codec

import (
	"sync"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// LazyRef defers reading an external payload until it is first needed.
//
// A successful Resolve caches the values; later calls return the cache
// without touching the file. Failures are not cached, so a handle whose
// file was missing or corrupt can be resolved again once the file is fixed.
type LazyRef struct {
	mu       sync.Mutex
	ref      types.ExternalRef
	baseDir  string
	values   []float64
	resolved bool
}

// NewLazyRef wraps ref, whose path is relative to baseDir. No I/O happens.
func NewLazyRef(ref types.ExternalRef, baseDir string) *LazyRef {
	return &LazyRef{ref: ref, baseDir: baseDir}
}

// Ref returns the wrapped external reference.
func (l *LazyRef) Ref() types.ExternalRef {
	return l.ref
}

// Resolved reports whether the payload has been loaded.
func (l *LazyRef) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}

// Resolve decodes the payload on first success and returns the cached
// values afterwards. The returned slice is shared; callers must not
// modify it.
func (l *LazyRef) Resolve() ([]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved {
		return l.values, nil
	}
	values, err := Decode(l.ref, l.baseDir)
	if err != nil {
		return nil, err
	}
	l.values = values
	l.resolved = true
	return values, nil
}
