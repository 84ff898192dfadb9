package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after NFD decomposition, so
// "Straße" and "Strasse", "für" and "fur" compare equal after folding.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases text and removes diacritics for fuzzy matching.
// ß expands to ss before decomposition since NFD leaves it intact.
func foldText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ß", "ss")
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}

// collapseWhitespace squashes runs of whitespace (including newlines) into
// single spaces and trims the result.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeValue trims a matched value and collapses internal whitespace.
// OCR'd PDF text frequently breaks values across lines.
func normalizeValue(s string) string {
	return collapseWhitespace(strings.TrimSpace(s))
}
