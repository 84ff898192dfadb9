package model

import "time"

// RunStatus tracks a persisted pipeline execution.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// TokenUsage accumulates interpreter token consumption and estimated cost
// across a run.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add accumulates usage from another counter.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Cost += other.Cost
}

// RunSummary aggregates field outcomes for one run.
type RunSummary struct {
	TotalFields int   `json:"total_fields"`
	Filled      int   `json:"filled"`
	Rejected    int   `json:"rejected"`
	Unresolved  int   `json:"unresolved"`
	DurationMS  int64 `json:"duration_ms"`
}

// RunResult is the complete output of one pipeline run: one MappingResult
// per input field, in input order, plus aggregate counters. RunID is empty
// when the run was not persisted.
type RunResult struct {
	RunID    string          `json:"run_id,omitempty"`
	FormName string          `json:"form_name,omitempty"`
	Results  []MappingResult `json:"results"`
	Summary  RunSummary      `json:"summary"`
	Usage    TokenUsage      `json:"usage"`
}

// Summarize recomputes the summary counters from the result sequence.
func (r *RunResult) Summarize() {
	s := RunSummary{TotalFields: len(r.Results), DurationMS: r.Summary.DurationMS}
	for i := range r.Results {
		switch r.Results[i].Status {
		case StatusFilled:
			s.Filled++
		case StatusRejected:
			s.Rejected++
		default:
			s.Unresolved++
		}
	}
	r.Summary = s
}

// Run is a persisted pipeline execution.
type Run struct {
	ID        string     `json:"id"`
	FormName  string     `json:"form_name"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
