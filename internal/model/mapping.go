package model

// SourceSynthesized is the sourceDocumentID sentinel for candidates
// generated from indirect evidence instead of a concrete document.
const SourceSynthesized = "synthesized"

// Signal names recognized by the confidence weight configuration. Signals
// outside this set contribute with a small default weight.
const (
	SignalFormatValidity   = "formatValidity"
	SignalContextRelevance = "contextRelevance"
	SignalSpecificity      = "specificity"
	SignalDerivation       = "derivationCertainty"
)

// Signals maps named scoring factors to sub-scores in [0,1].
type Signals map[string]float64

// Clone returns an independent copy of the signal map.
func (s Signals) Clone() Signals {
	if s == nil {
		return nil
	}
	out := make(Signals, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ExtractionCandidate is a proposed answer for one field. RawConfidence is
// always computed from Signals by the confidence aggregator, never assigned
// directly.
type ExtractionCandidate struct {
	FieldID          string  `json:"field_id"`
	Value            string  `json:"value"`
	SourceDocumentID string  `json:"source_document_id"`
	RawConfidence    float64 `json:"raw_confidence"`
	Signals          Signals `json:"signals,omitempty"`
}

// Synthesized reports whether the candidate was generated rather than
// extracted from a concrete document.
func (c *ExtractionCandidate) Synthesized() bool {
	return c.SourceDocumentID == SourceSynthesized
}

// MappingStatus is the terminal outcome for one field.
type MappingStatus string

const (
	StatusFilled     MappingStatus = "filled"
	StatusUnresolved MappingStatus = "unresolved"
	StatusRejected   MappingStatus = "rejected"
)

// CandidateOrigin records which path produced the candidate that reached
// validation.
type CandidateOrigin string

const (
	OriginMatched CandidateOrigin = "matched"
	OriginDerived CandidateOrigin = "derived"
	OriginNone    CandidateOrigin = "none"
)

// Diagnostic reasons recorded on rejected and unresolved results.
const (
	ReasonFormatInvalid  = "format_invalid"
	ReasonLowConfidence  = "low_confidence"
	ReasonNotFound       = "not_found"
	ReasonBackendFailure = "backend_failure"
	ReasonTimeout        = "timeout"
	ReasonCanceled       = "canceled"
)

// AlternativeValue is a runner-up candidate retained for human review.
type AlternativeValue struct {
	Value            string  `json:"value"`
	SourceDocumentID string  `json:"source_document_id"`
	Confidence       float64 `json:"confidence"`
}

// FieldDiagnostics keeps the raw material behind a decision: the unmodified
// candidate value for rejected fields, the failure reason, and runner-up
// candidates. Never needed to interpret a filled value, always useful when
// reviewing one.
type FieldDiagnostics struct {
	RawValue         string             `json:"raw_value,omitempty"`
	Reason           string             `json:"reason,omitempty"`
	SourceDocumentID string             `json:"source_document_id,omitempty"`
	Signals          Signals            `json:"signals,omitempty"`
	Alternatives     []AlternativeValue `json:"alternatives,omitempty"`
}

// MappingResult is the final decision for one field. Exactly one result
// exists per field per run; rejected results carry a nil AcceptedValue.
type MappingResult struct {
	FieldID       string            `json:"field_id"`
	AcceptedValue *string           `json:"accepted_value"`
	Confidence    float64           `json:"confidence"`
	Status        MappingStatus     `json:"status"`
	Origin        CandidateOrigin   `json:"origin,omitempty"`
	Diagnostics   *FieldDiagnostics `json:"diagnostics,omitempty"`
}

// Value returns the accepted value or "" when none was accepted.
func (r *MappingResult) Value() string {
	if r.AcceptedValue == nil {
		return ""
	}
	return *r.AcceptedValue
}
