package interpreter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/formworks/formfill-cli/internal/resilience"
)

// Options configures the Anthropic-backed interpreter.
type Options struct {
	APIKey string
	Model  string

	// MaxTokens is the default response budget when a Request does not set one.
	MaxTokens int64

	// RequestsPerSecond and Burst seed the adaptive rate limiter.
	RequestsPerSecond float64
	Burst             int

	// RequestTimeout bounds each API call. Zero disables the per-call timeout
	// (the caller's context still applies).
	RequestTimeout time.Duration
}

// anthropicInterpreter implements Interpreter using the official SDK.
type anthropicInterpreter struct {
	client  sdk.Client
	model   string
	limiter *AdaptiveLimiter
	opts    Options
}

// NewAnthropic creates an Interpreter backed by the Anthropic API.
func NewAnthropic(opts Options) Interpreter {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5-20250929"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	return &anthropicInterpreter{
		client: sdk.NewClient(
			option.WithAPIKey(opts.APIKey),
		),
		model:   opts.Model,
		limiter: NewAdaptiveLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
	}
}

func (a *anthropicInterpreter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "interpreter: rate limiter wait")
	}

	if a.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RequestTimeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.opts.MaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.mapError(err)
	}

	a.limiter.OnSuccess()
	return fromSDKMessage(msg), nil
}

// mapError classifies SDK failures so callers can distinguish retryable
// backend trouble from permanent request errors.
func (a *anthropicInterpreter) mapError(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == http.StatusTooManyRequests {
			a.limiter.OnRateLimit()
		}
		if resilience.IsTransientHTTPStatus(apierr.StatusCode) {
			return resilience.NewTransientError(
				eris.Wrap(err, "interpreter: create message"),
				apierr.StatusCode,
			)
		}
		return eris.Wrap(err, "interpreter: create message")
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(eris.Wrap(err, "interpreter: create message"), 0)
	}
	return eris.Wrap(err, "interpreter: create message")
}

func fromSDKMessage(msg *sdk.Message) *Response {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return &Response{
		Text:       sb.String(),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
}
