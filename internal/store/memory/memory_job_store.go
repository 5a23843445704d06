package memory

import (
	"context"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"sort"
	"sync"
	"time"
)

// JobStore keeps turn jobs in process memory. Safe for concurrent use.
// Waiting jobs form a FIFO and in-flight jobs are indexed by player name.
type JobStore struct {
	mu      sync.RWMutex
	nextID  int64
	jobs    map[int64]*types.Job
	waiting []int64
	byName  map[string][]int64
	closed  bool
	now     func() time.Time
}

var _ store.JobStore = (*JobStore)(nil)

func NewJobStore() *JobStore {
	return &JobStore{
		jobs:   make(map[int64]*types.Job),
		byName: make(map[string][]int64),
		now:    time.Now,
	}
}

func (s *JobStore) Enqueue(_ context.Context, player types.Player) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, custom_errors.ErrQueueUnavailable
	}

	s.nextID++
	job := &types.Job{
		ID:        s.nextID,
		Data:      clonePlayer(player),
		State:     state.StateWaiting,
		CreatedAt: s.now().UTC(),
	}
	s.jobs[job.ID] = job
	s.waiting = append(s.waiting, job.ID)
	s.byName[player.Name] = append(s.byName[player.Name], job.ID)

	return job.ID, nil
}

func (s *JobStore) DequeueNext(_ context.Context) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	for len(s.waiting) > 0 {
		id := s.waiting[0]
		s.waiting = s.waiting[1:]

		job, ok := s.jobs[id]
		if !ok || job.State != state.StateWaiting {
			continue
		}
		now := s.now().UTC()
		job.State = state.StateActive
		job.StartedAt = &now
		return cloneJob(job), nil
	}
	return nil, nil
}

func (s *JobStore) Complete(_ context.Context, jobID int64) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %d does not exist", custom_errors.ErrInvalidStateTransition, jobID)
	}
	if !state.IsValidTransition(job.State, state.StateCompleted) {
		return nil, fmt.Errorf("%w: job %d is %s", custom_errors.ErrInvalidStateTransition, jobID, job.State)
	}

	now := s.now().UTC()
	job.State = state.StateCompleted
	job.FinishedAt = &now
	s.unindex(job)

	return cloneJob(job), nil
}

func (s *JobStore) GetJob(_ context.Context, jobID int64) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return cloneJob(job), nil
}

func (s *JobStore) GetJobsByState(_ context.Context, states ...state.JobState) ([]types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	states = store.States(states)
	jobs := make([]types.Job, 0)
	for _, job := range s.jobs {
		if state.Contains(states, job.State) {
			jobs = append(jobs, *cloneJob(job))
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func (s *JobStore) FindByPlayerName(_ context.Context, name string, states ...state.JobState) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	states = store.States(states)
	if onlyInFlight(states) {
		for _, id := range s.byName[name] {
			if job := s.jobs[id]; job != nil && state.Contains(states, job.State) {
				return cloneJob(job), nil
			}
		}
		return nil, nil
	}

	var found *types.Job
	for _, job := range s.jobs {
		if job.Data.Name != name || !state.Contains(states, job.State) {
			continue
		}
		if found == nil || job.ID < found.ID {
			found = job
		}
	}
	if found == nil {
		return nil, nil
	}
	return cloneJob(found), nil
}

func (s *JobStore) AttachAction(_ context.Context, jobID int64, action string) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %d", custom_errors.ErrNotFound, jobID)
	}
	if !state.Contains(state.InFlightStates, job.State) {
		return nil, fmt.Errorf("%w: job %d is %s", custom_errors.ErrInvalidStateTransition, jobID, job.State)
	}

	job.Data = job.Data.WithAction(action)
	return cloneJob(job), nil
}

func (s *JobStore) UpdateProgress(_ context.Context, jobID int64, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return custom_errors.ErrQueueUnavailable
	}

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %d", custom_errors.ErrNotFound, jobID)
	}
	if job.State != state.StateActive {
		return fmt.Errorf("%w: job %d is %s", custom_errors.ErrInvalidStateTransition, jobID, job.State)
	}

	if progress = store.ClampProgress(progress); progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

func (s *JobStore) CountAllJobsGroupedByState(_ context.Context) (map[state.JobState]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, custom_errors.ErrQueueUnavailable
	}

	result := make(map[state.JobState]int, len(state.AllStates))
	for _, st := range state.AllStates {
		result[st] = 0
	}
	for _, job := range s.jobs {
		result[job.State]++
	}
	return result, nil
}

func (s *JobStore) PurgeCompleted(_ context.Context, finishedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, custom_errors.ErrQueueUnavailable
	}

	removed := 0
	for id, job := range s.jobs {
		if job.State == state.StateCompleted && job.FinishedAt != nil && job.FinishedAt.Before(finishedBefore) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (s *JobStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return custom_errors.ErrQueueUnavailable
	}
	return nil
}

func (s *JobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// unindex drops a job that left the in-flight states from the name index.
func (s *JobStore) unindex(job *types.Job) {
	ids := s.byName[job.Data.Name]
	for i, id := range ids {
		if id == job.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byName, job.Data.Name)
		return
	}
	s.byName[job.Data.Name] = ids
}

func onlyInFlight(states []state.JobState) bool {
	for _, st := range states {
		if !state.Contains(state.InFlightStates, st) {
			return false
		}
	}
	return true
}

func cloneJob(job *types.Job) *types.Job {
	cp := *job
	cp.Data = clonePlayer(job.Data)
	if job.StartedAt != nil {
		t := *job.StartedAt
		cp.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

func clonePlayer(p types.Player) types.Player {
	if p.Action != nil {
		a := *p.Action
		p.Action = &a
	}
	return p
}
