package types

import (
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"time"
)

type Job struct {
	ID         int64          `json:"id"`
	Data       Player         `json:"data"`
	State      state.JobState `json:"state"`
	Progress   int            `json:"progress"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// JobStatus is the view of a job returned by status queries.
type JobStatus struct {
	JobID    int64          `json:"jobId"`
	State    state.JobState `json:"state"`
	Progress int            `json:"progress"`
	Player   Player         `json:"player"`
}

func (j Job) Status() JobStatus {
	return JobStatus{
		JobID:    j.ID,
		State:    j.State,
		Progress: j.Progress,
		Player:   j.Data,
	}
}
