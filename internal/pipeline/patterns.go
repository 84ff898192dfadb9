package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/formworks/formfill-cli/internal/model"
)

// matchPattern pairs a compiled expression with the base format-validity
// signal its matches carry and the capture group holding the value.
type matchPattern struct {
	re       *regexp.Regexp
	validity float64
	group    int
}

// Date patterns in descending trust order. A labeled dotted date ("Datum:
// 12.03.2024") is near-certain; a bare slash date could be a fraction of
// anything.
var datePatterns = []matchPattern{
	{
		re:       regexp.MustCompile(`(?i)(?:datum|date|am|vom)\s*[:.]?\s+(\d{1,2}\.\d{1,2}\.\d{4})`),
		validity: 0.95,
		group:    1,
	},
	{
		re:       regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})`),
		validity: 0.90,
		group:    1,
	},
	{
		re:       regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
		validity: 0.85,
		group:    1,
	},
	{
		re:       regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
		validity: 0.80,
		group:    1,
	},
}

var emailPattern = matchPattern{
	re:       regexp.MustCompile(`([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`),
	validity: 0.95,
	group:    1,
}

var numberPatterns = []matchPattern{
	{
		re:       regexp.MustCompile(`(?i)(?:nr|nummer|anzahl|number|no)\.?\s*[:.]?\s+([0-9][0-9.,]*)`),
		validity: 0.85,
		group:    1,
	},
	{
		re:       regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)\b`),
		validity: 0.70,
		group:    1,
	},
}

var booleanPattern = matchPattern{
	re:       regexp.MustCompile(`(?i)\b(ja|nein|yes|no|true|false)\b`),
	validity: 0.70,
	group:    1,
}

// orgNamePattern captures a run of capitalized words ending in a German
// legal-form suffix. Every word must start uppercase so surrounding prose
// ("Vertrag mit der Lichtblick Solartechnik GmbH") stays out of the
// capture. Longer suffixes come first so "GmbH & Co. KG" is not cut at
// "GmbH".
var orgNamePattern = matchPattern{
	re: regexp.MustCompile(`((?:[A-ZÄÖÜ][A-Za-zÄÖÜäöüß0-9&.\-]*\s+){1,6}(?:GmbH\s*&\s*Co\.\s*KG\b|gGmbH\b|GmbH\b|AG\b|SE\b|KG\b|OHG\b|UG\b|mbH\b|e\.\s?V\.))`),
	validity: 0.85,
	group:    1,
}

// choiceLiteralValidity applies when a declared option appears verbatim in
// a document.
const choiceLiteralValidity = 0.95

// constraintPatternValidity applies when a field's own validation pattern
// matched the text.
const constraintPatternValidity = 0.90

// patternsForKind returns the regex table to run against documents for a
// semantic kind. Derived kinds return nil: they never scan documents.
func patternsForKind(kind model.FieldSemanticKind, field model.FieldDescriptor) []matchPattern {
	switch kind {
	case model.KindDate:
		return datePatterns
	case model.KindNumber:
		return numberPatterns
	case model.KindBoolean:
		return []matchPattern{booleanPattern}
	case model.KindOrgName:
		return []matchPattern{orgNamePattern}
	case model.KindChoice:
		if field.Constraints == nil {
			return nil
		}
		if p := choicePattern(field.Constraints.Choices); p != nil {
			return []matchPattern{*p}
		}
		return nil
	case model.KindLiteralText:
		var out []matchPattern
		if re := field.Constraints.CompiledPattern(); re != nil {
			out = append(out, matchPattern{re: re, validity: constraintPatternValidity})
		}
		if looksLikeEmailField(field) {
			out = append(out, emailPattern)
		}
		return out
	default:
		return nil
	}
}

// choicePattern builds a case-insensitive alternation over the declared
// options, longest first so "Teilzeit" wins over "Teil".
func choicePattern(choices []string) *matchPattern {
	if len(choices) == 0 {
		return nil
	}
	quoted := make([]string, len(choices))
	copy(quoted, choices)
	// Insertion sort by descending length; option lists are short.
	for i := 1; i < len(quoted); i++ {
		for j := i; j > 0 && len(quoted[j]) > len(quoted[j-1]); j-- {
			quoted[j], quoted[j-1] = quoted[j-1], quoted[j]
		}
	}
	for i, c := range quoted {
		quoted[i] = regexp.QuoteMeta(c)
	}
	re, err := regexp.Compile(fmt.Sprintf(`(?i)\b(%s)\b`, strings.Join(quoted, "|")))
	if err != nil {
		return nil
	}
	return &matchPattern{re: re, validity: choiceLiteralValidity, group: 1}
}

// looksLikeEmailField checks label and hints for email intent so plain text
// fields do not sweep up every address in the corpus.
func looksLikeEmailField(field model.FieldDescriptor) bool {
	probe := foldText(field.Label + " " + field.ContextHints)
	return strings.Contains(probe, "e-mail") || strings.Contains(probe, "email") || strings.Contains(probe, "mail")
}
