// Package interpreter defines the text-interpretation boundary used by the
// mapping pipeline. An Interpreter answers free-form extraction prompts over
// document text; the production implementation is backed by the Anthropic
// API, and Stub provides a deterministic offline substitute.
package interpreter

import (
	"context"

	"go.uber.org/zap"
)

// Interpreter answers a single extraction prompt. Implementations must be
// safe for concurrent use; the pipeline calls Complete from one goroutine
// per form field.
type Interpreter interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single prompt for the interpreter backend.
type Request struct {
	// System is the instruction block prepended to the conversation.
	System string

	// Prompt is the user-role message carrying document text and the
	// extraction question.
	Prompt string

	// MaxTokens bounds the response length. Zero means the backend default.
	MaxTokens int64

	// Temperature, when set, overrides the backend's sampling default.
	// Extraction prompts want 0 for reproducibility.
	Temperature *float64
}

// Response is the interpreter's answer with token accounting.
type Response struct {
	Text       string
	Model      string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption for one or more interpreter calls.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model ID.
// Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	cacheWriteCost := (float64(u.CacheCreationInputTokens) / 1e6) * pricing[0] * 1.25
	cacheReadCost := (float64(u.CacheReadInputTokens) / 1e6) * pricing[0] * 0.1
	return inCost + outCost + cacheWriteCost + cacheReadCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
