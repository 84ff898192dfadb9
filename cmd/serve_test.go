//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/pipeline"
	"github.com/formworks/formfill-cli/internal/store"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

func newServeStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func serveConfig() *config.Config {
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

func postFill(t *testing.T, mux http.Handler, payload fillRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/fill", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	mux := buildRouter(context.Background(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_Fill_Accepted(t *testing.T) {
	st := newServeStore(t)
	// With a nil pipeline, the run record is created but never executed.
	mux := buildRouter(context.Background(), st, nil)

	rr := postFill(t, mux, fillRequest{
		Form: &model.FormSchema{
			Name: "arbeitsaufnahme",
			Fields: []model.FieldDescriptor{
				{ID: "arbeitgeber", Label: "Arbeitgeber", ExpectedType: model.FieldTypeText},
			},
		},
		Documents: model.DocumentCorpus{
			{ID: "vertrag", Text: "Arbeitgeber: Lichtblick Solartechnik GmbH"},
		},
	})

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	require.NotEmpty(t, resp["run_id"])

	run, err := st.GetRun(context.Background(), resp["run_id"])
	require.NoError(t, err)
	assert.Equal(t, "arbeitsaufnahme", run.FormName)
	assert.Equal(t, model.RunStatusPending, run.Status)
}

func TestBuildRouter_Fill_InvalidJSON(t *testing.T) {
	mux := buildRouter(context.Background(), newServeStore(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/fill", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestBuildRouter_Fill_MissingForm(t *testing.T) {
	mux := buildRouter(context.Background(), newServeStore(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/fill", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "form is required")
}

func TestBuildRouter_Fill_SchemaRejected(t *testing.T) {
	st := newServeStore(t)
	mux := buildRouter(context.Background(), st, nil)

	rr := postFill(t, mux, fillRequest{
		Form: &model.FormSchema{
			Name: "broken",
			Fields: []model.FieldDescriptor{
				{ID: "doppelt", Label: "Eins"},
				{ID: "doppelt", Label: "Zwei"},
			},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "duplicate field id")

	// A rejected schema must not leave a run record behind.
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestBuildRouter_GetRun_NotFound(t *testing.T) {
	mux := buildRouter(context.Background(), newServeStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/does-not-exist", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "run not found")
}

func TestBuildRouter_GetRun_Found(t *testing.T) {
	st := newServeStore(t)
	mux := buildRouter(context.Background(), st, nil)

	created, err := st.CreateRun(context.Background(), "arbeitsaufnahme")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/"+created.ID, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, created.ID, run.ID)
	assert.Equal(t, "arbeitsaufnahme", run.FormName)
	assert.Equal(t, model.RunStatusPending, run.Status)
}

func TestBuildRouter_Fill_RunsToCompletion(t *testing.T) {
	st := newServeStore(t)
	interp := &interpreter.Stub{Responses: pipeline.StubInterpreterResponses()}
	p := pipeline.New(serveConfig(), st, interp)
	mux := buildRouter(context.Background(), st, p)

	rr := postFill(t, mux, fillRequest{
		Form:      pipeline.StubSchema(),
		Documents: pipeline.StubCorpus(),
	})
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	runID := resp["run_id"]
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		run, err := st.GetRun(context.Background(), runID)
		return err == nil && run.Status == model.RunStatusComplete
	}, 10*time.Second, 50*time.Millisecond, "run should complete asynchronously")

	run, err := st.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, run.Result)
	assert.Len(t, run.Result.Results, len(pipeline.StubSchema().Fields))
	assert.Greater(t, run.Result.Summary.Filled, 0)
	assert.Equal(t, runID, run.Result.RunID)
}
