package pipeline

import (
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
)

// Aggregator folds a candidate's evidence signals into a single confidence
// score. Scores for any non-empty signal set land in [floor, 1.0]: the
// floor marks "a pattern matched at all" and the weighted signal mean
// spreads candidates across the remaining range. An empty signal set means
// no evidence and scores 0.
type Aggregator struct {
	weights config.Weights
	floor   float64
}

// NewAggregator builds an Aggregator from pipeline configuration. A zero
// weight set falls back to the defaults so a partially filled config file
// cannot silence all signals.
func NewAggregator(cfg config.PipelineConfig) *Aggregator {
	w := cfg.Weights
	if w.FormatValidity+w.ContextRelevance+w.Specificity+w.DefaultSignal == 0 {
		zap.L().Warn("score: all signal weights are zero, using defaults")
		w = config.DefaultWeights()
	}
	return &Aggregator{weights: w, floor: cfg.ConfidenceFloor}
}

// Score maps signals to a confidence in [floor, 1.0], or 0 for an empty
// set. Raising any single signal never lowers the result.
func (a *Aggregator) Score(signals model.Signals) float64 {
	if len(signals) == 0 {
		return 0.0
	}

	var weighted, totalWeight float64
	for name, value := range signals {
		w := a.signalWeight(name)
		if w <= 0 {
			continue
		}
		weighted += w * clamp01(value)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0.0
	}

	return a.floor + (1.0-a.floor)*(weighted/totalWeight)
}

// ScoreCandidates fills in RawConfidence for each candidate in place.
func (a *Aggregator) ScoreCandidates(cands []model.ExtractionCandidate) {
	for i := range cands {
		cands[i].RawConfidence = a.Score(cands[i].Signals)
	}
}

// signalWeight returns the configured weight for a known signal name, or
// the default weight for signals this build does not recognize. Unknown
// signals still count so custom matchers can contribute evidence.
func (a *Aggregator) signalWeight(name string) float64 {
	switch name {
	case model.SignalFormatValidity:
		return a.weights.FormatValidity
	case model.SignalContextRelevance:
		return a.weights.ContextRelevance
	case model.SignalSpecificity:
		return a.weights.Specificity
	default:
		return a.weights.DefaultSignal
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
