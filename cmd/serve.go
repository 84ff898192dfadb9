package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/corpus"
	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/pipeline"
	"github.com/formworks/formfill-cli/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for fill requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: buildRouter(ctx, env.Store, env.Pipeline),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// fillRequest is the POST /v1/fill payload: an inline form schema plus the
// documents to resolve it against. Documents may be empty, in which case
// only derived fields can fill.
type fillRequest struct {
	Form      *model.FormSchema    `json:"form"`
	Documents model.DocumentCorpus `json:"documents"`
}

// buildRouter assembles the HTTP API. Fill runs execute asynchronously on
// baseCtx so they survive the request that started them; the response
// carries the run id for polling. A nil pipeline accepts requests without
// executing them, which keeps handler tests free of interpreter wiring.
func buildRouter(baseCtx context.Context, st store.Store, p *pipeline.Pipeline) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/fill", func(w http.ResponseWriter, req *http.Request) {
		var body fillRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Form == nil {
			writeError(w, http.StatusBadRequest, "form is required")
			return
		}
		if err := body.Form.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Posted documents get the same kind detection as file-loaded ones.
		for i := range body.Documents {
			if body.Documents[i].Kind == "" {
				body.Documents[i].Kind = corpus.DetectKind(body.Documents[i].ID, body.Documents[i].Text)
			}
		}

		var runID string
		if st != nil {
			run, err := st.CreateRun(req.Context(), body.Form.Name)
			if err != nil {
				zap.L().Error("create run record", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "create run record")
				return
			}
			runID = run.ID
		}

		go func() {
			if p == nil {
				return
			}
			if _, err := p.RunRecorded(baseCtx, runID, body.Form, body.Documents); err != nil {
				zap.L().Error("fill request failed",
					zap.String("run_id", runID),
					zap.String("form", body.Form.Name),
					zap.Error(err),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": runID,
			"status": string(model.RunStatusPending),
		})
	})

	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("load run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "load run")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
