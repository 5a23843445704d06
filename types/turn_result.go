package types

import "time"

type TurnOutcome string

const (
	// TurnSucceeded means the turn action returned without error.
	TurnSucceeded TurnOutcome = "succeeded"
	// TurnFailed means the action failed; the job was still completed and the player re-enqueued.
	TurnFailed TurnOutcome = "failed"
	// TurnStalled means the job could not be completed and stays active.
	TurnStalled TurnOutcome = "stalled"
)

var TurnOutcomes = []TurnOutcome{TurnSucceeded, TurnFailed, TurnStalled}

// TurnResult describes one processed iteration of the turn loop.
type TurnResult struct {
	JobID      int64       `json:"job_id"`
	NextJobID  int64       `json:"next_job_id,omitempty"`
	PlayerID   int64       `json:"player_id"`
	PlayerName string      `json:"player_name"`
	Action     string      `json:"action,omitempty"`
	Outcome    TurnOutcome `json:"outcome"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

func (r TurnResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
