package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/store"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

// Pipeline resolves every field of a form schema against a document corpus.
// All collaborators are injected; nothing reads ambient state at run time.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	interp    interpreter.Interpreter
	matcher   *Matcher
	agg       *Aggregator
	validator *Validator
	now       func() time.Time
}

// New creates a pipeline. st may be nil to run without persistence; interp
// may be nil to run on patterns alone.
func New(cfg *config.Config, st store.Store, interp interpreter.Interpreter) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		interp:    interp,
		matcher:   NewMatcher(interp, cfg.Pipeline),
		agg:       NewAggregator(cfg.Pipeline),
		validator: NewValidator(cfg.Pipeline),
		now:       time.Now,
	}
}

// WithNow pins the pipeline clock. Derived dates and duration accounting
// read the injected clock.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run records a new run and resolves every schema field against the corpus.
func (p *Pipeline) Run(ctx context.Context, schema *model.FormSchema, corpus model.DocumentCorpus) (*model.RunResult, error) {
	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, schema.Name)
		if err != nil {
			zap.L().Warn("pipeline: create run record", zap.Error(err))
		} else {
			runID = run.ID
		}
	}
	return p.RunRecorded(ctx, runID, schema, corpus)
}

// RunRecorded resolves fields against an already-created run record.
// Callers that need the run id before completion (the webhook server)
// create the record first; an empty runID skips persistence entirely.
//
// The only fatal error is a rejected schema. Field-level failures degrade
// the affected field and the run still completes.
func (p *Pipeline) RunRecorded(ctx context.Context, runID string, schema *model.FormSchema, corpus model.DocumentCorpus) (*model.RunResult, error) {
	log := zap.L().With(
		zap.String("form", schema.Name),
		zap.String("run_id", runID),
		zap.Int("fields", len(schema.Fields)),
		zap.Int("documents", len(corpus)),
	)

	// Persistence is best-effort and survives caller cancellation, so an
	// interrupted run still records its final state.
	persist := func(op string, fn func(ctx context.Context) error) {
		if p.store == nil || runID == "" {
			return
		}
		if err := fn(context.WithoutCancel(ctx)); err != nil {
			log.Warn("pipeline: "+op, zap.Error(err))
		}
	}

	if err := schema.Validate(); err != nil {
		persist("record failed run", func(ctx context.Context) error {
			return p.store.FailRun(ctx, runID, err)
		})
		return nil, eris.Wrap(err, "pipeline: schema rejected")
	}

	log.Info("pipeline: starting run")
	started := p.now()
	persist("update run status", func(ctx context.Context) error {
		return p.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning)
	})

	result := &model.RunResult{
		RunID:    runID,
		FormName: schema.Name,
		Results:  make([]model.MappingResult, len(schema.Fields)),
	}

	var (
		mu    sync.Mutex
		usage interpreter.TokenUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.MaxConcurrentFields)

	for i := range schema.Fields {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, p.cfg.Pipeline.FieldTimeout)
			defer cancel()

			res, fieldUsage := p.resolveField(fctx, schema.Fields[i], corpus)

			mu.Lock()
			result.Results[i] = res
			usage.Add(fieldUsage)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Usage = model.TokenUsage{
		InputTokens:  usage.InputTokens + usage.CacheCreationInputTokens + usage.CacheReadInputTokens,
		OutputTokens: usage.OutputTokens,
		Cost:         usage.EstimateCost(p.cfg.Anthropic.Model),
	}
	result.Summary.DurationMS = p.now().Sub(started).Milliseconds()
	result.Summarize()

	if usage.InputTokens+usage.OutputTokens > 0 {
		usage.LogCost(p.cfg.Anthropic.Model, "resolve")
	}

	persist("save run result", func(ctx context.Context) error {
		return p.store.UpdateRunResult(ctx, runID, result)
	})
	persist("update run status", func(ctx context.Context) error {
		return p.store.UpdateRunStatus(ctx, runID, model.RunStatusComplete)
	})

	log.Info("pipeline: run complete",
		zap.Int("filled", result.Summary.Filled),
		zap.Int("rejected", result.Summary.Rejected),
		zap.Int("unresolved", result.Summary.Unresolved),
		zap.Int64("duration_ms", result.Summary.DurationMS),
	)
	return result, nil
}

// resolveField runs classify, match or derive, score, rank and validate for
// one field. It never fails: every failure mode maps onto a degraded
// MappingResult so the slot in the result sequence is always filled.
func (p *Pipeline) resolveField(ctx context.Context, field model.FieldDescriptor, corpus model.DocumentCorpus) (model.MappingResult, interpreter.TokenUsage) {
	var usage interpreter.TokenUsage

	if err := ctx.Err(); err != nil {
		return degradedResult(field, contextReason(err)), usage
	}

	kind := ClassifyField(field)
	log := zap.L().With(zap.String("field", field.ID), zap.String("kind", string(kind)))

	var cands []model.ExtractionCandidate
	origin := model.OriginMatched

	switch kind {
	case model.KindDerivedDate:
		origin = model.OriginDerived
		cand, err := DeriveDate(field, p.now())
		if err != nil {
			log.Warn("pipeline: date derivation failed", zap.Error(err))
		} else {
			cands = append(cands, cand)
		}
	case model.KindDerivedLocation:
		origin = model.OriginDerived
		if cand := DeriveLocation(field, corpus, p.cfg.Pipeline.FallbackLocation); cand.Value != "" {
			cands = append(cands, cand)
		}
	default:
		var err error
		cands, usage, err = p.matcher.Match(ctx, field, kind, corpus)
		if err != nil {
			reason := model.ReasonBackendFailure
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				reason = model.ReasonTimeout
			case errors.Is(err, context.Canceled):
				reason = model.ReasonCanceled
			}
			log.Warn("pipeline: field resolution degraded",
				zap.String("reason", reason),
				zap.Error(err),
			)
			return degradedResult(field, reason), usage
		}
	}

	p.agg.ScoreCandidates(cands)
	rankCandidates(cands, field, kind, corpus)
	res := p.validator.Validate(field, cands, origin)

	log.Debug("pipeline: field resolved",
		zap.String("status", string(res.Status)),
		zap.Float64("confidence", res.Confidence),
		zap.Int("candidates", len(cands)),
	)
	return res, usage
}

// degradedResult is the unresolved result for a field whose resolution
// could not complete.
func degradedResult(field model.FieldDescriptor, reason string) model.MappingResult {
	return model.MappingResult{
		FieldID: field.ID,
		Status:  model.StatusUnresolved,
		Origin:  model.OriginNone,
		Diagnostics: &model.FieldDiagnostics{
			Reason: reason,
		},
	}
}

func contextReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ReasonTimeout
	}
	return model.ReasonCanceled
}
