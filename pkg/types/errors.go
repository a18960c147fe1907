package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Callers test for them with errors.Is.
var (
	// ErrSchema means the bundled schema document is itself not a valid schema.
	ErrSchema = errors.New("invalid schema document")

	// ErrValidation means a document does not conform to the schema.
	// The concrete error is a *ValidationError.
	ErrValidation = errors.New("document does not conform to schema")

	// ErrStructural reports caller misuse of the record API: unknown
	// sampling grid index, unsupported storage type, bad parameter value.
	ErrStructural = errors.New("invalid record structure")

	// ErrIO wraps file system failures while reading or writing a record.
	ErrIO = errors.New("record i/o failed")

	// ErrIntegrity means an external file does not match its stored checksum.
	// The concrete error is an *IntegrityError.
	ErrIntegrity = errors.New("checksum mismatch")

	// ErrUnsupportedEncoding reports an external file encoding this codec
	// version does not understand.
	ErrUnsupportedEncoding = errors.New("unsupported file encoding")

	// ErrNotFound reports a missing data channel or external file.
	ErrNotFound = errors.New("not found")
)

// Violation is one schema conformance failure.
type Violation struct {
	Path   string // JSON pointer into the document; "" is the root.
	Reason string
}

func (v Violation) String() string {
	p := v.Path
	if p == "" {
		p = "/"
	}
	return fmt.Sprintf("%s: %s", p, v.Reason)
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return ErrValidation.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrValidation, e.Violations[0])
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %d violations: %s", ErrValidation, len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IntegrityError is returned when the checksum recomputed from an external
// file differs from the one stored in the primary document.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s: expected md5 %s, got %s", ErrIntegrity, e.Path, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }
