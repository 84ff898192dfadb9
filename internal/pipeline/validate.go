package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
)

// Validator renders the final decision for one field: it coerces the best
// candidate into the field's declared type and constraints and applies the
// acceptance threshold. Coercion failures reject the field rather than
// unresolving it, so the raw value stays visible for review.
type Validator struct {
	threshold       float64
	maxAlternatives int
}

// NewValidator creates a validator from pipeline configuration.
func NewValidator(cfg config.PipelineConfig) *Validator {
	return &Validator{
		threshold:       cfg.AcceptanceThreshold,
		maxAlternatives: cfg.MaxAlternatives,
	}
}

// Validate turns ranked candidates into the MappingResult for one field.
// The caller reports which path produced the candidates; with none at all
// the field is unresolved and the origin collapses to none.
func (v *Validator) Validate(field model.FieldDescriptor, ranked []model.ExtractionCandidate, origin model.CandidateOrigin) model.MappingResult {
	if len(ranked) == 0 {
		return model.MappingResult{
			FieldID: field.ID,
			Status:  model.StatusUnresolved,
			Origin:  model.OriginNone,
			Diagnostics: &model.FieldDiagnostics{
				Reason: model.ReasonNotFound,
			},
		}
	}

	best := ranked[0]
	diag := &model.FieldDiagnostics{
		SourceDocumentID: best.SourceDocumentID,
		Signals:          best.Signals.Clone(),
		Alternatives:     v.alternatives(ranked),
	}

	canonical, err := canonicalize(best.Value, field)
	if err != nil {
		zap.L().Warn("validate: candidate failed coercion",
			zap.String("field", field.ID),
			zap.String("raw_value", best.Value),
			zap.Error(err),
		)
		diag.RawValue = best.Value
		diag.Reason = model.ReasonFormatInvalid
		return model.MappingResult{
			FieldID:     field.ID,
			Confidence:  best.RawConfidence,
			Status:      model.StatusRejected,
			Origin:      origin,
			Diagnostics: diag,
		}
	}

	if best.RawConfidence < v.threshold {
		diag.RawValue = best.Value
		diag.Reason = model.ReasonLowConfidence
		return model.MappingResult{
			FieldID:     field.ID,
			Confidence:  best.RawConfidence,
			Status:      model.StatusRejected,
			Origin:      origin,
			Diagnostics: diag,
		}
	}

	return model.MappingResult{
		FieldID:       field.ID,
		AcceptedValue: &canonical,
		Confidence:    best.RawConfidence,
		Status:        model.StatusFilled,
		Origin:        origin,
		Diagnostics:   diag,
	}
}

// alternatives collects runner-up values for diagnostics, deduplicated by
// folded value and capped by configuration.
func (v *Validator) alternatives(ranked []model.ExtractionCandidate) []model.AlternativeValue {
	if len(ranked) <= 1 || v.maxAlternatives <= 0 {
		return nil
	}
	seen := map[string]bool{foldText(ranked[0].Value): true}
	var out []model.AlternativeValue
	for _, c := range ranked[1:] {
		key := foldText(c.Value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.AlternativeValue{
			Value:            c.Value,
			SourceDocumentID: c.SourceDocumentID,
			Confidence:       c.RawConfidence,
		})
		if len(out) == v.maxAlternatives {
			break
		}
	}
	return out
}

// canonicalize coerces a candidate value into the field's declared type and
// renders it in canonical form. An error means the value cannot represent
// the declared type at all.
func canonicalize(value string, field model.FieldDescriptor) (string, error) {
	switch field.ExpectedType {
	case model.FieldTypeDate:
		return canonicalDate(value, field)
	case model.FieldTypeChoice:
		return canonicalChoice(value, field)
	case model.FieldTypeNumber:
		return canonicalNumber(value)
	case model.FieldTypeBoolean:
		return canonicalBool(value)
	default:
		return canonicalText(value, field)
	}
}

// dateParseLayouts are the wire formats dates arrive in. The single-digit
// layouts also accept zero-padded components.
var dateParseLayouts = []string{
	"2.1.2006",
	"2006-01-02",
	"2/1/2006",
}

// canonicalDate reparses the candidate and re-renders it in the field's
// declared format, so "2024-03-12" fills a DD.MM.YYYY field as
// "12.03.2024". Slash dates read day-first.
func canonicalDate(value string, field model.FieldDescriptor) (string, error) {
	layout, err := model.DateLayout(field.DateFormat())
	if err != nil {
		return "", eris.Wrapf(err, "validate: field %q", field.ID)
	}
	for _, l := range append([]string{layout}, dateParseLayouts...) {
		t, perr := time.Parse(l, value)
		if perr != nil {
			continue
		}
		return t.Format(layout), nil
	}
	return "", eris.Errorf("validate: %q is not a recognized date", value)
}

// canonicalChoice maps the candidate onto a declared option, restoring the
// option's declared casing and spelling.
func canonicalChoice(value string, field model.FieldDescriptor) (string, error) {
	folded := foldText(value)
	for _, opt := range field.Constraints.Choices {
		if foldText(opt) == folded {
			return opt, nil
		}
	}
	return "", eris.Errorf("validate: %q is not among the declared options", value)
}

var thousandsDotRe = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)

// canonicalNumber normalizes German and English digit grouping to a plain
// decimal string: "1.234,56" and "1,234.56" both become "1234.56". A lone
// comma reads as the German decimal mark.
func canonicalNumber(value string) (string, error) {
	s := strings.ReplaceAll(value, " ", "")
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case thousandsDotRe.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", eris.Errorf("validate: %q is not a number", value)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// canonicalBool normalizes yes/no spellings within their language: German
// tokens render "Ja"/"Nein", English ones "Yes"/"No".
func canonicalBool(value string) (string, error) {
	switch foldText(value) {
	case "ja", "wahr":
		return "Ja", nil
	case "nein", "falsch":
		return "Nein", nil
	case "yes", "true":
		return "Yes", nil
	case "no", "false":
		return "No", nil
	}
	return "", eris.Errorf("validate: %q is not a yes/no value", value)
}

// canonicalText applies the length cap before the pattern check, matching
// how the value would land in the form cell.
func canonicalText(value string, field model.FieldDescriptor) (string, error) {
	s := value
	if c := field.Constraints; c != nil && c.MaxLength > 0 {
		if r := []rune(s); len(r) > c.MaxLength {
			s = strings.TrimSpace(string(r[:c.MaxLength]))
		}
	}
	if re := field.Constraints.CompiledPattern(); re != nil && !re.MatchString(s) {
		return "", eris.Errorf("validate: value does not match pattern %q", field.Constraints.Pattern)
	}
	return s, nil
}
