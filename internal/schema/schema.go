// Package schema loads the bundled measurement record schema and validates
// documents against it.
//
// The schema is compiled once per process (see Default) and is read-only
// afterwards, so a single Validator is shared by every record.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

//go:embed measurement_record.schema.json
var bundledSchema []byte

// fallbackLocation names the schema resource when the document has no $id.
const fallbackLocation = "https://mrec.local/measurement-record.schema.json"

// Validator checks documents against one compiled schema.
type Validator struct {
	id     string
	schema *jsonschema.Schema
}

// Default returns the validator for the bundled schema. The schema is
// compiled on first call; every later call returns the same Validator or
// the same error.
var Default = sync.OnceValues(func() (*Validator, error) {
	return Load(bundledSchema)
})

// MustDefault is like Default but panics if the bundled schema is broken.
func MustDefault() *Validator {
	v, err := Default()
	if err != nil {
		panic(err)
	}
	return v
}

// Bundled returns a copy of the embedded schema document.
func Bundled() []byte {
	return bytes.Clone(bundledSchema)
}

// Load compiles a draft-07 schema document. The document is checked against
// the draft-07 meta-schema first; any failure is reported as ErrSchema.
func Load(doc []byte) (*Validator, error) {
	raw, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", types.ErrSchema, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: schema document must be a JSON object", types.ErrSchema)
	}
	id, _ := obj["$id"].(string)
	loc := id
	if loc == "" {
		loc = fallbackLocation
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)
	if err := c.AddResource(loc, raw); err != nil {
		return nil, fmt.Errorf("%w: add resource %s: %w", types.ErrSchema, loc, err)
	}
	sch, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", types.ErrSchema, loc, err)
	}
	return &Validator{id: id, schema: sch}, nil
}

// ID returns the $id of the schema. Written documents carry it as $schema.
func (v *Validator) ID() string {
	return v.id
}

// Validate checks an in-memory document. The document is encoded to JSON
// first so that struct values are seen exactly as they will be written.
func (v *Validator) Validate(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document for validation: %w", err)
	}
	return v.ValidateJSON(b)
}

// ValidateJSON checks an encoded document. It returns nil or a
// *types.ValidationError listing every violation.
func (v *Validator) ValidateJSON(doc []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return &types.ValidationError{Violations: []types.Violation{
			{Path: "", Reason: fmt.Sprintf("not a JSON document: %v", err)},
		}}
	}
	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate: %w", err)
	}
	return &types.ValidationError{Violations: violations(ve)}
}

var printer = message.NewPrinter(language.English)

// violations flattens the cause tree into its leaves, which carry the
// concrete reasons. Duplicate leaves reached through several branches are
// reported once.
func violations(root *jsonschema.ValidationError) []types.Violation {
	var out []types.Violation
	seen := make(map[types.Violation]bool)
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		v := types.Violation{
			Path:   pointer(e.InstanceLocation),
			Reason: e.ErrorKind.LocalizedString(printer),
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	walk(root)
	return out
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// pointer renders instance location tokens as a JSON pointer.
func pointer(tokens []string) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteByte('/')
		sb.WriteString(pointerEscaper.Replace(t))
	}
	return sb.String()
}
