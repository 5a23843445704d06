package store

import (
	"context"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"time"
)

// JobStore is the ordered collection of turn jobs shared by the turn
// processor and the request handlers. Every state change goes through it.
type JobStore interface {
	// Enqueue appends a new waiting job for the player at the tail of the queue and returns its ID.
	Enqueue(ctx context.Context, player types.Player) (int64, error)

	// DequeueNext atomically claims the earliest waiting job and marks it active.
	// Returns nil when no job is waiting.
	DequeueNext(ctx context.Context) (*types.Job, error)

	// Complete moves an active job to completed and returns its final snapshot.
	Complete(ctx context.Context, jobID int64) (*types.Job, error)

	// GetJob looks a job up by ID in any state. Returns nil when absent.
	GetJob(ctx context.Context, jobID int64) (*types.Job, error)

	// GetJobsByState returns the jobs in any of the given states in queue order.
	GetJobsByState(ctx context.Context, states ...state.JobState) ([]types.Job, error)

	// FindByPlayerName returns the first job in queue order among the given
	// states whose player has the given name. Returns nil when none matches.
	FindByPlayerName(ctx context.Context, name string, states ...state.JobState) (*types.Job, error)

	// AttachAction sets the player's action on a waiting or active job.
	AttachAction(ctx context.Context, jobID int64, action string) (*types.Job, error)

	// UpdateProgress raises the progress of an active job. Lower values are ignored.
	UpdateProgress(ctx context.Context, jobID int64, progress int) error

	CountAllJobsGroupedByState(ctx context.Context) (map[state.JobState]int, error)

	// PurgeCompleted removes completed jobs finished before the given time.
	PurgeCompleted(ctx context.Context, finishedBefore time.Time) (int, error)

	Ping(ctx context.Context) error

	// Close closes the backing connection
	Close() error
}

// ClampProgress bounds a progress value to the 0..100 range.
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// States returns the given states, or every state when none are given.
func States(states []state.JobState) []state.JobState {
	if len(states) == 0 {
		return state.AllStates
	}
	return states
}
