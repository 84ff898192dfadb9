package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/formworks/formfill-cli/internal/model"
)

// ErrNotFound is returned when a run lookup or update targets an ID that
// does not exist. Callers match it with errors.Is to distinguish missing
// records from backend failures.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	FormName     string          `json:"form_name,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the fill pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, formName string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Extracted-text cache
	GetCachedText(ctx context.Context, checksum string) (*model.DocumentCache, error)
	SetCachedText(ctx context.Context, cache model.DocumentCache, ttl time.Duration) error
	DeleteExpiredTexts(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
