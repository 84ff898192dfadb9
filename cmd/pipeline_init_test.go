//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

// testCmdConfig returns a valid configuration backed by a temp SQLite file.
func testCmdConfig(t *testing.T) *config.Config {
	t.Helper()
	c := serveConfig()
	c.Store = config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "formfill.db"),
	}
	c.Corpus = config.CorpusConfig{PdfToTextPath: "pdftotext", CacheTTL: time.Hour}
	return c
}

func TestPipelineEnv_Close_Nil(t *testing.T) {
	// Close with all nil fields should not panic.
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "mysql"},
	}

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitPipeline_DryMode(t *testing.T) {
	cfg = testCmdConfig(t)

	env, err := initPipeline(context.Background(), "dry")
	require.NoError(t, err)
	t.Cleanup(env.Close)

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Loader)
	_, ok := env.Interpreter.(*interpreter.Stub)
	assert.True(t, ok, "dry mode should wire the stub interpreter")
}

func TestInitPipeline_FillModeNeedsKey(t *testing.T) {
	cfg = testCmdConfig(t)
	cfg.Anthropic.Key = ""

	env, err := initPipeline(context.Background(), "fill")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key")
}

func TestInitPipeline_RejectsInvalidConcurrency(t *testing.T) {
	cfg = testCmdConfig(t)
	cfg.Pipeline.MaxConcurrentFields = 0

	env, err := initPipeline(context.Background(), "dry")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_fields")
}
