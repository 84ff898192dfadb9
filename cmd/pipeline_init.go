package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/corpus"
	"github.com/formworks/formfill-cli/internal/pipeline"
	"github.com/formworks/formfill-cli/internal/store"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

// pipelineEnv holds the initialized store, interpreter, corpus loader, and
// the pipeline needed by the fill/serve commands.
type pipelineEnv struct {
	Store       store.Store
	Interpreter interpreter.Interpreter
	Loader      *corpus.Loader
	Pipeline    *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the interpreter, and the corpus loader,
// and builds the Pipeline. Callers should defer env.Close(). Mode "dry"
// swaps the Anthropic client for the canned-response stub so the pipeline
// runs without an API key.
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var interp interpreter.Interpreter
	if mode == "dry" {
		interp = &interpreter.Stub{Responses: pipeline.StubInterpreterResponses()}
		zap.L().Info("dry run: using stub interpreter")
	} else {
		interp = interpreter.NewAnthropic(interpreter.Options{
			APIKey:            cfg.Anthropic.Key,
			Model:             cfg.Anthropic.Model,
			MaxTokens:         int64(cfg.Anthropic.MaxTokens),
			RequestsPerSecond: cfg.Anthropic.RequestsPerSecond,
			Burst:             cfg.Anthropic.Burst,
			RequestTimeout:    cfg.Anthropic.RequestTimeout,
		})
	}

	loader := corpus.NewLoader(corpus.LoaderOptions{
		Extractor: corpus.NewPdfToText(cfg.Corpus.PdfToTextPath),
		Cache:     st,
		CacheTTL:  cfg.Corpus.CacheTTL,
	})

	p := pipeline.New(cfg, st, interp)

	return &pipelineEnv{
		Store:       st,
		Interpreter: interp,
		Loader:      loader,
		Pipeline:    p,
	}, nil
}

// initStore opens the run store named by config: SQLite for local use,
// Postgres when a deployment shares runs across processes.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "formfill.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
