package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/store"
	"github.com/formworks/formfill-cli/pkg/interpreter"
)

// --- Interpreter Mock ---

type mockInterpreter struct {
	mock.Mock
}

func (m *mockInterpreter) Complete(ctx context.Context, req interpreter.Request) (*interpreter.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interpreter.Response), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, formName string) (*model.Run, error) {
	args := m.Called(ctx, formName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, cause error) error {
	args := m.Called(ctx, runID, cause)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) GetCachedText(ctx context.Context, checksum string) (*model.DocumentCache, error) {
	args := m.Called(ctx, checksum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentCache), args.Error(1)
}

func (m *mockStore) SetCachedText(ctx context.Context, cache model.DocumentCache, ttl time.Duration) error {
	args := m.Called(ctx, cache, ttl)
	return args.Error(0)
}

func (m *mockStore) DeleteExpiredTexts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ensure interface compliance ---
var (
	_ interpreter.Interpreter = (*mockInterpreter)(nil)
	_ store.Store             = (*mockStore)(nil)
)
