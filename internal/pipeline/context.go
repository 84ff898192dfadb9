package pipeline

import (
	"strings"

	"github.com/formworks/formfill-cli/internal/model"
)

// contextWindow is the span in bytes around a match inspected for hint
// keywords and the field label.
const contextWindow = 200

// contextRelevanceBase is the floor for any match: text that matched a
// pattern at all is weak evidence even with no supporting keywords nearby.
const contextRelevanceBase = 0.3

// hintKeywords splits a field's context hints into distinct folded
// keywords. Hints are comma- or whitespace-separated.
func hintKeywords(field model.FieldDescriptor) []string {
	raw := strings.FieldsFunc(field.ContextHints, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	seen := make(map[string]bool)
	for _, part := range raw {
		for _, w := range strings.Fields(part) {
			w = foldText(strings.Trim(w, "?.,!;:'\"()[]{}"))
			if len(w) < 3 || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// contextRelevance scores how well the text around a match supports the
// field: base 0.3, +0.2 per distinct hint keyword inside the window, +0.1
// when the field label itself appears nearby. Capped at 1.0.
func contextRelevance(field model.FieldDescriptor, docText string, offset, matchLen int) float64 {
	lo := offset - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := offset + matchLen + contextWindow
	if hi > len(docText) {
		hi = len(docText)
	}
	window := foldText(docText[lo:hi])

	score := contextRelevanceBase
	for _, kw := range hintKeywords(field) {
		if strings.Contains(window, kw) {
			score += 0.2
		}
	}
	if label := foldText(field.Label); label != "" && strings.Contains(window, label) {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// orgHintWords flag fields whose value should come from organization
// paperwork rather than personal documents.
var orgHintWords = []string{"firma", "unternehmen", "handelsregister", "trager", "organisation", "company", "employer", "arbeitgeber"}

// prefersOrgDocument reports whether the field's value should come from
// organization paperwork.
func prefersOrgDocument(kind model.FieldSemanticKind, field model.FieldDescriptor) bool {
	if kind == model.KindOrgName {
		return true
	}
	probe := foldText(field.Label + " " + field.ContextHints)
	for _, w := range orgHintWords {
		if strings.Contains(probe, w) {
			return true
		}
	}
	return false
}

// specificity scores the source document against the field's preference:
// org-affine fields trust organization documents fully and personal ones
// half; fields with no preference sit at a neutral 0.75.
func specificity(kind model.FieldSemanticKind, field model.FieldDescriptor, docKind model.DocumentKind) float64 {
	if prefersOrgDocument(kind, field) {
		if docKind == model.DocOrganization {
			return 1.0
		}
		return 0.5
	}
	return 0.75
}

// docKindAffinity ranks a document kind for tie-breaking between candidates
// with equal confidence. Higher is better.
func docKindAffinity(kind model.FieldSemanticKind, field model.FieldDescriptor, docKind model.DocumentKind) int {
	if prefersOrgDocument(kind, field) && docKind == model.DocOrganization {
		return 1
	}
	return 0
}

// trimByRelevance performs keyword-aware truncation for interpreter
// prompts. Content is split into sections, each scored by folded keyword
// overlap with the probe text, and the highest-scoring sections are kept
// within the limit. Falls back to a hard cut when sectioning finds nothing.
func trimByRelevance(content, probe string, limit int) string {
	if len(content) <= limit {
		return content
	}

	keywords := probeKeywords(probe)
	if len(keywords) == 0 {
		return content[:limit]
	}

	sections := splitSections(content)
	if len(sections) <= 1 {
		return content[:limit]
	}

	type scoredSection struct {
		idx   int
		text  string
		score int
	}
	scored := make([]scoredSection, len(sections))
	for i, sec := range sections {
		folded := foldText(sec)
		score := 0
		for _, kw := range keywords {
			score += strings.Count(folded, kw)
		}
		scored[i] = scoredSection{idx: i, text: sec, score: score}
	}

	// Insertion sort by score descending; section counts are small.
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].score > scored[j-1].score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	selected := make(map[int]bool)
	totalLen := 0
	for _, s := range scored {
		if totalLen+len(s.text) > limit {
			continue
		}
		selected[s.idx] = true
		totalLen += len(s.text)
	}
	if len(selected) == 0 {
		return content[:limit]
	}

	// Reassemble in original order.
	var result strings.Builder
	for i, sec := range sections {
		if selected[i] {
			if result.Len() > 0 {
				result.WriteString("\n\n")
			}
			result.WriteString(sec)
		}
	}
	return result.String()
}

// probeStopWords are skipped when extracting keywords from labels and hints.
var probeStopWords = map[string]bool{
	"der": true, "die": true, "das": true, "und": true, "fur": true,
	"von": true, "des": true, "dem": true, "den": true, "ein": true,
	"eine": true, "mit": true, "auf": true, "ist": true, "bei": true,
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"with": true, "from": true, "what": true, "which": true, "where": true,
}

// probeKeywords returns distinct folded words of 3+ characters from text,
// excluding stop words.
func probeKeywords(text string) []string {
	words := strings.Fields(foldText(text))
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.Trim(w, "?.,!;:'\"()[]{}")
		if len(w) < 3 || probeStopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// splitSections splits text into sections by blank lines.
func splitSections(content string) []string {
	var sections []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" && current.Len() > 0 {
			sections = append(sections, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sections = append(sections, s)
	}

	filtered := sections[:0]
	for _, s := range sections {
		if s != "" {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
