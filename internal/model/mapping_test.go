package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignals_Clone_Independent(t *testing.T) {
	orig := Signals{SignalFormatValidity: 0.9, SignalContextRelevance: 0.5}
	cp := orig.Clone()

	cp[SignalFormatValidity] = 0.1
	assert.Equal(t, 0.9, orig[SignalFormatValidity])
	assert.Nil(t, Signals(nil).Clone())
}

func TestRunResult_Summarize(t *testing.T) {
	v := "x"
	r := RunResult{Results: []MappingResult{
		{FieldID: "a", Status: StatusFilled, AcceptedValue: &v},
		{FieldID: "b", Status: StatusRejected},
		{FieldID: "c", Status: StatusUnresolved},
		{FieldID: "d", Status: StatusFilled, AcceptedValue: &v},
	}}
	r.Summary.DurationMS = 1200

	r.Summarize()
	assert.Equal(t, 4, r.Summary.TotalFields)
	assert.Equal(t, 2, r.Summary.Filled)
	assert.Equal(t, 1, r.Summary.Rejected)
	assert.Equal(t, 1, r.Summary.Unresolved)
	assert.Equal(t, int64(1200), r.Summary.DurationMS)
}

func TestMappingResult_Value(t *testing.T) {
	r := MappingResult{FieldID: "f", Status: StatusUnresolved}
	assert.Equal(t, "", r.Value())

	v := "Berlin"
	r.AcceptedValue = &v
	assert.Equal(t, "Berlin", r.Value())
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 20, Cost: 0.01}
	u.Add(TokenUsage{InputTokens: 50, OutputTokens: 10, Cost: 0.005})

	assert.Equal(t, int64(150), u.InputTokens)
	assert.Equal(t, int64(30), u.OutputTokens)
	assert.InDelta(t, 0.015, u.Cost, 1e-9)
}
