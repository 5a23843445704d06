package client_test

import (
	"context"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/memory"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/mocks"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func submit(t *testing.T, jobs *memory.JobStore, players *memory.PlayerStore, name string) int64 {
	t.Helper()
	id, err := client.NewSubmissionService(jobs, players).Submit(context.Background(), types.PlayerInput{Name: name})
	require.NoError(t, err)
	return id
}

func TestAttachAction_WaitingJob(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewJobStore()
	players := memory.NewPlayerStore()
	jobID := submit(t, jobs, players, "felipe")

	got, err := client.NewActionService(jobs, players).AttachAction(ctx, "felipe", "jump")
	require.NoError(t, err)
	assert.Equal(t, jobID, got)

	job, _ := jobs.GetJob(ctx, jobID)
	assert.Equal(t, "jump", job.Data.ActionValue())
	assert.Equal(t, state.StateWaiting, job.State)

	records := players.Actions(job.Data.ID)
	require.Len(t, records, 1)
	assert.Equal(t, "jump", records[0].Action)
}

func TestAttachAction_UnknownPlayer(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewJobStore()
	players := memory.NewPlayerStore()
	jobID := submit(t, jobs, players, "felipe")

	_, err := client.NewActionService(jobs, players).AttachAction(ctx, "ghost", "jump")
	require.Error(t, err)
	assert.True(t, errors.Is(err, custom_errors.ErrNotFound))
	assert.Contains(t, err.Error(), "Player ghost not found in the queue.")

	job, _ := jobs.GetJob(ctx, jobID)
	assert.Nil(t, job.Data.Action)
}

func TestAttachAction_Validation(t *testing.T) {
	svc := client.NewActionService(memory.NewJobStore(), memory.NewPlayerStore())

	_, err := svc.AttachAction(context.Background(), "felipe", " ")
	assert.True(t, errors.Is(err, custom_errors.ErrValidation))

	_, err = svc.AttachAction(context.Background(), "", "jump")
	assert.True(t, errors.Is(err, custom_errors.ErrValidation))
}

func TestAttachAction_PersistenceFailureMutatesNothing(t *testing.T) {
	attached := 0
	jobs := &mocks.MockJobStore{
		FindByPlayerNameFunc: func(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
			return &types.Job{ID: 1, Data: types.Player{ID: 5, Name: name}, State: state.StateWaiting}, nil
		},
		AttachActionFunc: func(ctx context.Context, jobID int64, action string) (*types.Job, error) {
			attached++
			return &types.Job{ID: jobID}, nil
		},
	}
	players := &mocks.MockPlayerStore{
		InsertActionFunc: func(ctx context.Context, playerID int64, action string) error {
			return errors.New("timeout")
		},
	}

	_, err := client.NewActionService(jobs, players).AttachAction(context.Background(), "felipe", "jump")
	assert.True(t, errors.Is(err, custom_errors.ErrPersistence))
	assert.Equal(t, 0, attached)
}

func TestAttachAction_FollowsSuccessorJob(t *testing.T) {
	finds, records := 0, 0
	jobs := &mocks.MockJobStore{
		FindByPlayerNameFunc: func(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
			finds++
			return &types.Job{ID: int64(finds), Data: types.Player{ID: 5, Name: name}}, nil
		},
		AttachActionFunc: func(ctx context.Context, jobID int64, action string) (*types.Job, error) {
			if jobID == 1 {
				return nil, fmt.Errorf("%w: job 1 completed", custom_errors.ErrInvalidStateTransition)
			}
			return &types.Job{ID: jobID, Data: types.Player{ID: 5, Name: "felipe"}.WithAction(action)}, nil
		},
	}
	players := &mocks.MockPlayerStore{
		InsertActionFunc: func(ctx context.Context, playerID int64, action string) error {
			records++
			return nil
		},
	}

	id, err := client.NewActionService(jobs, players).AttachAction(context.Background(), "felipe", "jump")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 1, records)
}

func TestAttachAction_GivesUpAfterAttempts(t *testing.T) {
	jobs := &mocks.MockJobStore{
		FindByPlayerNameFunc: func(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
			return &types.Job{ID: 1, Data: types.Player{ID: 5, Name: name}}, nil
		},
		AttachActionFunc: func(ctx context.Context, jobID int64, action string) (*types.Job, error) {
			return nil, custom_errors.ErrInvalidStateTransition
		},
	}

	_, err := client.NewActionService(jobs, &mocks.MockPlayerStore{}).AttachAction(context.Background(), "felipe", "jump")
	assert.True(t, errors.Is(err, custom_errors.ErrInvalidStateTransition))
}
