package client

import (
	"context"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
)

type StatusService struct {
	jobs store.JobStore
}

func NewStatusService(jobs store.JobStore) *StatusService {
	return &StatusService{jobs: jobs}
}

// GetStatus returns the current state, progress and player of a job in any state.
func (s *StatusService) GetStatus(ctx context.Context, jobID int64) (types.JobStatus, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return types.JobStatus{}, asKind(custom_errors.ErrQueueUnavailable, err)
	}
	if job == nil {
		return types.JobStatus{}, fmt.Errorf("%w: Job with ID %d not found.", custom_errors.ErrNotFound, jobID)
	}
	return job.Status(), nil
}

// ListJobs pages through the jobs in the given states in queue order.
func (s *StatusService) ListJobs(ctx context.Context, page, pageSize int, states ...state.JobState) (types.PaginationResult[types.JobStatus], error) {
	jobs, err := s.jobs.GetJobsByState(ctx, states...)
	if err != nil {
		return types.PaginationResult[types.JobStatus]{}, asKind(custom_errors.ErrQueueUnavailable, err)
	}
	statuses := make([]types.JobStatus, len(jobs))
	for i, j := range jobs {
		statuses[i] = j.Status()
	}
	return types.Paginate(statuses, page, pageSize), nil
}

// Stats counts the jobs in every state.
func (s *StatusService) Stats(ctx context.Context) (map[state.JobState]int, error) {
	counts, err := s.jobs.CountAllJobsGroupedByState(ctx)
	if err != nil {
		return nil, asKind(custom_errors.ErrQueueUnavailable, err)
	}
	for _, st := range state.AllStates {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}
