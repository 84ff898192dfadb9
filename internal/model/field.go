package model

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// FieldType enumerates the value types a form field can declare.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeDate    FieldType = "date"
	FieldTypeNumber  FieldType = "number"
	FieldTypeChoice  FieldType = "choice"
	FieldTypeBoolean FieldType = "boolean"
)

// FieldSemanticKind is the classified intent of a field. It is computed once
// per descriptor before resolution starts and consumed by the matcher, the
// generator and the extraction strategy ordering, so label heuristics live in
// exactly one place.
type FieldSemanticKind string

const (
	KindLiteralText     FieldSemanticKind = "literal_text"
	KindDate            FieldSemanticKind = "date"
	KindDerivedDate     FieldSemanticKind = "derived_date"
	KindDerivedLocation FieldSemanticKind = "derived_location"
	KindChoice          FieldSemanticKind = "choice"
	KindNumber          FieldSemanticKind = "number"
	KindBoolean         FieldSemanticKind = "boolean"
	KindOrgName         FieldSemanticKind = "org_name"
)

// Derivable reports whether values of this kind are synthesized from
// indirect evidence rather than extracted verbatim.
func (k FieldSemanticKind) Derivable() bool {
	return k == KindDerivedDate || k == KindDerivedLocation
}

// Constraints narrows the acceptable values for a field.
type Constraints struct {
	// Format is a display-style date pattern such as "DD.MM.YYYY".
	Format string `json:"format,omitempty"`
	// Choices enumerates the allowed values for choice fields.
	Choices []string `json:"choices,omitempty"`
	// Pattern is a regular expression the value must match.
	Pattern string `json:"pattern,omitempty"`
	// MaxLength caps the value length in runes; zero means unbounded.
	MaxLength int `json:"max_length,omitempty"`

	compiled *regexp.Regexp
}

// CompiledPattern returns the precompiled Pattern regex, or nil when no
// pattern constraint is set. Compilation happens in FormSchema.Validate.
func (c *Constraints) CompiledPattern() *regexp.Regexp {
	if c == nil {
		return nil
	}
	return c.compiled
}

// FieldDescriptor is one fillable slot in a target form. Descriptors are
// created by a schema loader and immutable afterwards.
type FieldDescriptor struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	ExpectedType FieldType    `json:"expected_type"`
	Constraints  *Constraints `json:"constraints,omitempty"`
	// ContextHints is free text from the surrounding form structure
	// (section title, help text) that disambiguates intent.
	ContextHints string `json:"context_hints,omitempty"`
	Required     bool   `json:"required,omitempty"`
	// CellRef locates the field's input cell for workbook-backed forms,
	// e.g. "Antrag!C12". Empty for schemas without a physical layout.
	CellRef string `json:"cell_ref,omitempty"`
}

// DefaultDateFormat is assumed for date fields without an explicit format
// constraint.
const DefaultDateFormat = "DD.MM.YYYY"

// DateFormat returns the field's declared date format, falling back to
// DefaultDateFormat.
func (f *FieldDescriptor) DateFormat() string {
	if f.Constraints != nil && f.Constraints.Format != "" {
		return f.Constraints.Format
	}
	return DefaultDateFormat
}

// FormSchema is the ordered field set of one target form. Field order is
// significant: pipeline output preserves it.
type FormSchema struct {
	Name   string            `json:"name,omitempty"`
	Fields []FieldDescriptor `json:"fields"`
}

// ErrSchemaMismatch marks a structurally malformed form schema. It is the
// only condition that aborts a run before field processing starts.
var ErrSchemaMismatch = eris.New("model: schema mismatch")

// Validate checks structural soundness and precompiles constraint patterns.
// A schema passing Validate is safe to hand to the pipeline.
func (s *FormSchema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.ID == "" {
			return eris.Wrapf(ErrSchemaMismatch, "field at index %d has empty id", i)
		}
		if _, dup := seen[f.ID]; dup {
			return eris.Wrapf(ErrSchemaMismatch, "duplicate field id %q", f.ID)
		}
		seen[f.ID] = struct{}{}

		switch f.ExpectedType {
		case FieldTypeText, FieldTypeDate, FieldTypeNumber, FieldTypeChoice, FieldTypeBoolean:
		case "":
			f.ExpectedType = FieldTypeText
		default:
			return eris.Wrapf(ErrSchemaMismatch, "field %q: unknown type %q", f.ID, f.ExpectedType)
		}

		if f.ExpectedType == FieldTypeChoice && (f.Constraints == nil || len(f.Constraints.Choices) == 0) {
			return eris.Wrapf(ErrSchemaMismatch, "choice field %q has no enumerated options", f.ID)
		}
		if f.Constraints == nil {
			continue
		}
		if f.Constraints.Pattern != "" {
			re, err := regexp.Compile(f.Constraints.Pattern)
			if err != nil {
				return eris.Wrapf(ErrSchemaMismatch, "field %q: invalid pattern %q", f.ID, f.Constraints.Pattern)
			}
			f.Constraints.compiled = re
		}
		if f.Constraints.Format != "" {
			if _, err := DateLayout(f.Constraints.Format); err != nil {
				return eris.Wrapf(ErrSchemaMismatch, "field %q: invalid date format %q", f.ID, f.Constraints.Format)
			}
		}
	}
	return nil
}

var layoutReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
)

// DateLayout converts a display-style date format ("DD.MM.YYYY") into a Go
// time layout ("02.01.2006"). Errors when the format carries no recognized
// date tokens.
func DateLayout(format string) (string, error) {
	if !strings.Contains(format, "DD") && !strings.Contains(format, "MM") && !strings.Contains(format, "YY") {
		return "", eris.Errorf("model: date format %q has no date tokens", format)
	}
	return layoutReplacer.Replace(format), nil
}
