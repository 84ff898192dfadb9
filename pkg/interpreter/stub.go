package interpreter

import (
	"context"
	"strings"
	"sync"
)

// Compile-time interface check.
var _ Interpreter = (*Stub)(nil)

// Stub implements Interpreter with canned responses for offline runs and
// tests. Responses are matched by substring against the prompt; the first
// match wins. Without a match the stub reports that nothing was found, so
// fields fall through to unresolved instead of failing the run.
type Stub struct {
	// Responses maps a prompt substring to the canned response text.
	Responses map[string]string

	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls []Request
}

// Complete implements Interpreter.
func (s *Stub) Complete(_ context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	text := stubNotFoundResponse
	for substr, resp := range s.Responses {
		if strings.Contains(req.Prompt, substr) || strings.Contains(req.System, substr) {
			text = resp
			break
		}
	}

	return &Response{
		Text:       text,
		Model:      "stub",
		StopReason: "end_turn",
		Usage: TokenUsage{
			InputTokens:  150,
			OutputTokens: 50,
		},
	}, nil
}

// Calls returns a copy of the requests seen so far.
func (s *Stub) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

const stubNotFoundResponse = `{"value": "", "confidence": 0, "source_document_id": "", "reasoning": "no supporting text found"}`
