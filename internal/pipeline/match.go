package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/resilience"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

// maxMatchesPerPattern caps how many hits one pattern may contribute per
// document. The bare-number pattern in a long contract would otherwise
// flood the candidate list with page numbers and amounts.
const maxMatchesPerPattern = 20

// interpreterDocBudget is the per-document character budget when building
// the fallback prompt from the corpus.
const interpreterDocBudget = 4000

// interpreterMaxTokens bounds the fallback completion. A single field value
// plus reasoning fits comfortably.
const interpreterMaxTokens = 512

const extractSystemPrompt = `You are a form-filling assistant extracting field values from German business documents.

Respond with a valid JSON object:
{"value": "<extracted value>", "confidence": <0.0-1.0>, "source_document_id": "<id of the document the value came from>", "reasoning": "<brief explanation>"}

If the documents do not contain the value, return:
{"value": "", "confidence": 0.0, "source_document_id": "", "reasoning": "not found"}

Never invent values that are not supported by the documents.`

const extractPrompt = `Form field: %s
Field type: %s
%sDocuments:
%s

Extract the value for this form field from the documents above. Return the JSON object only.`

// Matcher proposes extraction candidates for one field from the corpus.
// Pattern tables run first; for free-text kinds the interpreter serves as a
// fallback when no pattern hits. Candidates leave the matcher with signals
// only, the confidence aggregator computes RawConfidence afterwards.
type Matcher struct {
	interp interpreter.Interpreter
	cfg    config.PipelineConfig
}

// NewMatcher creates a matcher. interp may be nil, which disables the
// fallback path regardless of configuration.
func NewMatcher(interp interpreter.Interpreter, cfg config.PipelineConfig) *Matcher {
	return &Matcher{interp: interp, cfg: cfg}
}

// Match scans the corpus for candidate values for the field. The returned
// error is always an interpreter backend failure; pattern matching itself
// cannot fail. Callers treat the error as a degraded result for this one
// field, never as fatal to the run.
func (m *Matcher) Match(ctx context.Context, field model.FieldDescriptor, kind model.FieldSemanticKind, corpus model.DocumentCorpus) ([]model.ExtractionCandidate, interpreter.TokenUsage, error) {
	var usage interpreter.TokenUsage

	cands := m.matchPatterns(field, kind, corpus)
	if len(cands) > 0 || !m.interpreterEligible(kind) {
		return cands, usage, nil
	}
	return m.interpret(ctx, field, kind, corpus)
}

// matchPatterns runs the kind's pattern table over every document in corpus
// order. Duplicate values within one document keep only the first hit, which
// carries the highest validity because pattern tables are ordered by trust.
func (m *Matcher) matchPatterns(field model.FieldDescriptor, kind model.FieldSemanticKind, corpus model.DocumentCorpus) []model.ExtractionCandidate {
	patterns := patternsForKind(kind, field)
	if len(patterns) == 0 {
		return nil
	}

	var cands []model.ExtractionCandidate
	seen := make(map[string]bool)
	for _, doc := range corpus {
		for _, p := range patterns {
			locs := p.re.FindAllStringSubmatchIndex(doc.Text, maxMatchesPerPattern)
			for _, loc := range locs {
				start, end := matchSpan(loc, p.group)
				if start < 0 || end <= start {
					continue
				}
				if kind == model.KindNumber && sectionMarkerBefore(doc.Text, start) {
					continue
				}
				value := normalizeValue(doc.Text[start:end])
				if value == "" {
					continue
				}
				key := doc.ID + "\x00" + foldText(value)
				if seen[key] {
					continue
				}
				seen[key] = true

				cands = append(cands, model.ExtractionCandidate{
					FieldID:          field.ID,
					Value:            value,
					SourceDocumentID: doc.ID,
					Signals: model.Signals{
						model.SignalFormatValidity:   p.validity,
						model.SignalContextRelevance: contextRelevance(field, doc.Text, start, end-start),
						model.SignalSpecificity:      specificity(kind, field, doc.Kind),
					},
				})
			}
		}
	}
	return cands
}

// matchSpan returns the byte span of the value inside one
// FindAllStringSubmatchIndex entry, preferring the configured capture group
// and falling back to the whole match.
func matchSpan(loc []int, group int) (int, int) {
	if gi := 2 * group; group > 0 && gi+1 < len(loc) && loc[gi] >= 0 {
		return loc[gi], loc[gi+1]
	}
	return loc[0], loc[1]
}

// sectionMarkerBefore reports whether the match directly follows a German
// section sign, which marks clause numbering rather than a value
// ("§ 3 Arbeitszeit").
func sectionMarkerBefore(text string, start int) bool {
	prefix := strings.TrimRight(text[:start], " \t")
	return strings.HasSuffix(prefix, "§")
}

// interpreterEligible limits the fallback to kinds whose values are free
// text no pattern table can enumerate. Structured kinds that miss their
// patterns stay unresolved rather than trusting generated text.
func (m *Matcher) interpreterEligible(kind model.FieldSemanticKind) bool {
	if m.interp == nil || !m.cfg.InterpreterFallback {
		return false
	}
	return kind == model.KindLiteralText || kind == model.KindOrgName
}

// interpret asks the interpreter for the field value. Transient backend
// errors are retried once; a final failure surfaces to the caller so the
// field can be reported as degraded instead of silently unresolved.
func (m *Matcher) interpret(ctx context.Context, field model.FieldDescriptor, kind model.FieldSemanticKind, corpus model.DocumentCorpus) ([]model.ExtractionCandidate, interpreter.TokenUsage, error) {
	var usage interpreter.TokenUsage
	if len(corpus) == 0 {
		return nil, usage, nil
	}

	req := interpreter.Request{
		System:    extractSystemPrompt,
		Prompt:    m.buildPrompt(field, corpus),
		MaxTokens: interpreterMaxTokens,
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("interpreter", "complete")
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*interpreter.Response, error) {
		return m.interp.Complete(ctx, req)
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "matcher: interpreter fallback")
	}
	usage.Add(resp.Usage)

	cand, ok := m.parseCandidate(resp.Text, field, kind, corpus)
	if !ok {
		return nil, usage, nil
	}
	return []model.ExtractionCandidate{cand}, usage, nil
}

// buildPrompt renders the field and a relevance-trimmed view of the corpus
// into the extraction prompt.
func (m *Matcher) buildPrompt(field model.FieldDescriptor, corpus model.DocumentCorpus) string {
	probe := field.Label + " " + field.ContextHints

	var docs strings.Builder
	for _, doc := range corpus {
		kind := doc.Kind
		if kind == "" {
			kind = model.DocGeneric
		}
		fmt.Fprintf(&docs, "--- Document %s (%s) ---\n", doc.ID, kind)
		docs.WriteString(trimByRelevance(doc.Text, probe, interpreterDocBudget))
		docs.WriteString("\n\n")
	}

	hints := ""
	if field.ContextHints != "" {
		hints = "Context: " + field.ContextHints + "\n"
	}
	return fmt.Sprintf(extractPrompt, field.Label, field.ExpectedType, hints, strings.TrimSpace(docs.String()))
}

// parseCandidate turns the interpreter's JSON answer into a candidate. The
// reported confidence feeds the context-relevance signal; format validity is
// re-estimated locally because generated text never earns the near-certain
// scores of a direct pattern hit. A citation of an unknown document id is
// downgraded to a synthesized source.
func (m *Matcher) parseCandidate(text string, field model.FieldDescriptor, kind model.FieldSemanticKind, corpus model.DocumentCorpus) (model.ExtractionCandidate, bool) {
	cleaned := cleanJSON(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		zap.L().Warn("matcher: interpreter answer is not valid JSON",
			zap.String("field", field.ID),
			zap.Error(err),
		)
		return model.ExtractionCandidate{}, false
	}

	value := normalizeValue(stringifyValue(raw["value"]))
	if value == "" {
		return model.ExtractionCandidate{}, false
	}
	conf, _ := toFloat64(raw["confidence"])

	docID, _ := raw["source_document_id"].(string)
	docKind := model.DocGeneric
	if doc, ok := corpus.Get(docID); ok {
		if doc.Kind != "" {
			docKind = doc.Kind
		}
	} else {
		if docID != "" {
			zap.L().Warn("matcher: interpreter cited unknown document",
				zap.String("field", field.ID),
				zap.String("document", docID),
			)
		}
		docID = model.SourceSynthesized
	}

	return model.ExtractionCandidate{
		FieldID:          field.ID,
		Value:            value,
		SourceDocumentID: docID,
		Signals: model.Signals{
			model.SignalFormatValidity:   generatedValidity(value, kind, field),
			model.SignalContextRelevance: clamp01(conf),
			model.SignalSpecificity:      specificity(kind, field, docKind),
		},
	}, true
}

// generatedValidity estimates the format-validity signal for an
// interpreter-produced value.
func generatedValidity(value string, kind model.FieldSemanticKind, field model.FieldDescriptor) float64 {
	if kind == model.KindOrgName {
		if orgNamePattern.re.MatchString(value) {
			return 0.85
		}
		return 0.6
	}
	if re := field.Constraints.CompiledPattern(); re != nil {
		if re.MatchString(value) {
			return 0.9
		}
		return 0.4
	}
	return 0.7
}

// stringifyValue renders the interpreter's value field, which the prompt
// requests as a string but models occasionally return as a bare number.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// cleanJSON strips markdown fences and surrounding prose from a model
// response, leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// toFloat64 converts a decoded JSON number to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// rankCandidates orders scored candidates best first: confidence
// descending, then document-kind affinity, then corpus position.
// Synthesized candidates sort after every concrete document. The sort is
// stable, so candidates equal on all keys keep their emission order.
func rankCandidates(cands []model.ExtractionCandidate, field model.FieldDescriptor, kind model.FieldSemanticKind, corpus model.DocumentCorpus) {
	pos := func(c *model.ExtractionCandidate) int {
		if i := corpus.IndexOf(c.SourceDocumentID); i >= 0 {
			return i
		}
		return len(corpus)
	}
	affinity := func(c *model.ExtractionCandidate) int {
		doc, ok := corpus.Get(c.SourceDocumentID)
		if !ok {
			return 0
		}
		return docKindAffinity(kind, field, doc.Kind)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := &cands[i], &cands[j]
		if a.RawConfidence != b.RawConfidence {
			return a.RawConfidence > b.RawConfidence
		}
		if af, bf := affinity(a), affinity(b); af != bf {
			return af > bf
		}
		return pos(a) < pos(b)
	})
}
