package client_test

import (
	"context"
	"errors"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/memory"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewJobStore()
	players := memory.NewPlayerStore()
	jobID := submit(t, jobs, players, "felipe")
	svc := client.NewStatusService(jobs)

	status, err := svc.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, state.StateWaiting, status.State)
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, "felipe", status.Player.Name)

	_, err = svc.GetStatus(ctx, 999)
	assert.True(t, errors.Is(err, custom_errors.ErrNotFound))
	assert.Contains(t, err.Error(), "Job with ID 999 not found.")
}

func TestGetStatus_QueueUnavailable(t *testing.T) {
	jobs := memory.NewJobStore()
	require.NoError(t, jobs.Close())

	_, err := client.NewStatusService(jobs).GetStatus(context.Background(), 1)
	assert.True(t, errors.Is(err, custom_errors.ErrQueueUnavailable))
}

func TestListJobsAndStats(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewJobStore()
	players := memory.NewPlayerStore()
	first := submit(t, jobs, players, "felipe")
	submit(t, jobs, players, "ana")
	submit(t, jobs, players, "luis")
	_, err := jobs.DequeueNext(ctx)
	require.NoError(t, err)

	svc := client.NewStatusService(jobs)

	page, err := svc.ListJobs(ctx, 1, 2, state.StateWaiting, state.StateActive)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	require.Len(t, page.Items, 2)
	assert.Equal(t, first, page.Items[0].JobID)
	assert.Equal(t, state.StateActive, page.Items[0].State)
	assert.True(t, page.HasNextPage)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[state.StateWaiting])
	assert.Equal(t, 1, stats[state.StateActive])
	assert.Equal(t, 0, stats[state.StateCompleted])
}

func TestStats_FillsMissingStates(t *testing.T) {
	jobs := &mocks.MockJobStore{}
	stats, err := client.NewStatusService(jobs).Stats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats, len(state.AllStates))
}
