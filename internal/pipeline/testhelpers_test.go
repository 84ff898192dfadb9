package pipeline

import (
	"time"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
)

// testConfig mirrors the viper defaults so test arithmetic matches
// production behavior.
func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model: "claude-sonnet-4-5-20250929",
		},
		Pipeline: config.PipelineConfig{
			MaxConcurrentFields: 8,
			FieldTimeout:        45 * time.Second,
			AcceptanceThreshold: 0.6,
			ConfidenceFloor:     0.6,
			Weights:             config.DefaultWeights(),
			FallbackLocation:    "Berlin",
			InterpreterFallback: true,
			MaxAlternatives:     3,
		},
	}
}

// testDate is the pinned clock for derived-date assertions.
var testDate = time.Date(2024, time.August, 20, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testDate }

// Small corpus slices for matcher tests. The full demo corpus lives in
// stubs.go; these isolate single behaviors.
var (
	docLabeledDate = model.Document{
		ID:   "d-date",
		Text: "Vertragsbeginn\n\nDatum: 12.03.2024\n\nWeitere Angaben folgen.",
		Kind: model.DocGeneric,
	}
	docBareDate = model.Document{
		ID:   "d-bare",
		Text: "Beigefügt die Bescheinigung (Stand 05.01.2023) sowie weitere Unterlagen.",
		Kind: model.DocGeneric,
	}
)

func fieldDate(id string) model.FieldDescriptor {
	return model.FieldDescriptor{ID: id, Label: "Datum des Vertragsbeginns", ExpectedType: model.FieldTypeDate, ContextHints: "Vertragsbeginn"}
}
