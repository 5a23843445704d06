package mocks

import (
	"context"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"time"
)

// MockJobStore is a mock implementation of store.JobStore for testing.
type MockJobStore struct {
	EnqueueFunc                    func(ctx context.Context, player types.Player) (int64, error)
	DequeueNextFunc                func(ctx context.Context) (*types.Job, error)
	CompleteFunc                   func(ctx context.Context, jobID int64) (*types.Job, error)
	GetJobFunc                     func(ctx context.Context, jobID int64) (*types.Job, error)
	GetJobsByStateFunc             func(ctx context.Context, states ...state.JobState) ([]types.Job, error)
	FindByPlayerNameFunc           func(ctx context.Context, name string, states ...state.JobState) (*types.Job, error)
	AttachActionFunc               func(ctx context.Context, jobID int64, action string) (*types.Job, error)
	UpdateProgressFunc             func(ctx context.Context, jobID int64, progress int) error
	CountAllJobsGroupedByStateFunc func(ctx context.Context) (map[state.JobState]int, error)
	PurgeCompletedFunc             func(ctx context.Context, finishedBefore time.Time) (int, error)
	PingFunc                       func(ctx context.Context) error
	CloseFunc                      func() error
}

func (m *MockJobStore) Enqueue(ctx context.Context, player types.Player) (int64, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, player)
	}
	return 0, nil
}

func (m *MockJobStore) DequeueNext(ctx context.Context) (*types.Job, error) {
	if m.DequeueNextFunc != nil {
		return m.DequeueNextFunc(ctx)
	}
	return nil, nil
}

func (m *MockJobStore) Complete(ctx context.Context, jobID int64) (*types.Job, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *MockJobStore) GetJob(ctx context.Context, jobID int64) (*types.Job, error) {
	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *MockJobStore) GetJobsByState(ctx context.Context, states ...state.JobState) ([]types.Job, error) {
	if m.GetJobsByStateFunc != nil {
		return m.GetJobsByStateFunc(ctx, states...)
	}
	return []types.Job{}, nil
}

func (m *MockJobStore) FindByPlayerName(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
	if m.FindByPlayerNameFunc != nil {
		return m.FindByPlayerNameFunc(ctx, name, states...)
	}
	return nil, nil
}

func (m *MockJobStore) AttachAction(ctx context.Context, jobID int64, action string) (*types.Job, error) {
	if m.AttachActionFunc != nil {
		return m.AttachActionFunc(ctx, jobID, action)
	}
	return nil, nil
}

func (m *MockJobStore) UpdateProgress(ctx context.Context, jobID int64, progress int) error {
	if m.UpdateProgressFunc != nil {
		return m.UpdateProgressFunc(ctx, jobID, progress)
	}
	return nil
}

func (m *MockJobStore) CountAllJobsGroupedByState(ctx context.Context) (map[state.JobState]int, error) {
	if m.CountAllJobsGroupedByStateFunc != nil {
		return m.CountAllJobsGroupedByStateFunc(ctx)
	}
	return map[state.JobState]int{}, nil
}

func (m *MockJobStore) PurgeCompleted(ctx context.Context, finishedBefore time.Time) (int, error) {
	if m.PurgeCompletedFunc != nil {
		return m.PurgeCompletedFunc(ctx, finishedBefore)
	}
	return 0, nil
}

func (m *MockJobStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockJobStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
