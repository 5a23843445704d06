package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"time"
)

const jobColumns = `id, player_id, player_name, action, state, progress, created_at, started_at, finished_at`

type PostgresJobStore struct {
	db      *sql.DB
	timeout time.Duration
}

var _ store.JobStore = (*PostgresJobStore)(nil)

func NewPostgresJobStore(db *sql.DB, timeout time.Duration) *PostgresJobStore {
	return &PostgresJobStore{
		db:      db,
		timeout: timeout,
	}
}

func (r *PostgresJobStore) Enqueue(ctx context.Context, player types.Player) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
        INSERT INTO turn_jobs (
            player_id,
            player_name,
            action,
            state,
            created_at
        )
        VALUES ($1, $2, $3, $4, now())
        RETURNING id
    `

	var jobID int64
	err := r.db.QueryRowContext(ctx, query,
		player.ID,
		player.Name,
		player.Action,
		state.StateWaiting,
	).Scan(&jobID)
	if err != nil {
		return 0, wrapError(custom_errors.ErrQueueUnavailable, "enqueue", err)
	}
	return jobID, nil
}

// DequeueNext claims the oldest waiting row. SKIP LOCKED keeps two
// concurrent claimers from ever receiving the same job.
func (r *PostgresJobStore) DequeueNext(ctx context.Context) (*types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE turn_jobs
		SET state = $1,
		    started_at = NOW()
		WHERE id = (
			SELECT id FROM turn_jobs
			WHERE state = $2
			ORDER BY id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRowContext(ctx, query, state.StateActive, state.StateWaiting))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "dequeue", err)
	}
	return job, nil
}

func (r *PostgresJobStore) Complete(ctx context.Context, jobID int64) (*types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE turn_jobs
		SET state = $1,
		    finished_at = NOW()
		WHERE id = $2 AND state = $3
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRowContext(ctx, query, state.StateCompleted, jobID, state.StateActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %d is not active", custom_errors.ErrInvalidStateTransition, jobID)
		}
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "complete", err)
	}
	return job, nil
}

func (r *PostgresJobStore) GetJob(ctx context.Context, jobID int64) (*types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + jobColumns + ` FROM turn_jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "get job", err)
	}
	return job, nil
}

func (r *PostgresJobStore) GetJobsByState(ctx context.Context, states ...state.JobState) ([]types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + jobColumns + ` FROM turn_jobs WHERE state = ANY($1) ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, stateStrings(store.States(states)))
	if err != nil {
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "list jobs", err)
	}
	defer rows.Close()

	jobs := make([]types.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, wrapError(custom_errors.ErrQueueUnavailable, "scan job", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "list jobs", err)
	}
	return jobs, nil
}

func (r *PostgresJobStore) FindByPlayerName(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + jobColumns + `
		FROM turn_jobs
		WHERE player_name = $1 AND state = ANY($2)
		ORDER BY id ASC
		LIMIT 1
	`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, name, stateStrings(store.States(states))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "find by player name", err)
	}
	return job, nil
}

func (r *PostgresJobStore) AttachAction(ctx context.Context, jobID int64, action string) (*types.Job, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE turn_jobs
		SET action = $1
		WHERE id = $2 AND state = ANY($3)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRowContext(ctx, query, action, jobID, stateStrings(state.InFlightStates)))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "attach action", err)
	}

	var current state.JobState
	err = r.db.QueryRowContext(ctx, `SELECT state FROM turn_jobs WHERE id = $1`, jobID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %d", custom_errors.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "attach action", err)
	}
	return nil, fmt.Errorf("%w: job %d is %s", custom_errors.ErrInvalidStateTransition, jobID, current)
}

func (r *PostgresJobStore) UpdateProgress(ctx context.Context, jobID int64, progress int) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE turn_jobs
		SET progress = GREATEST(progress, $1)
		WHERE id = $2 AND state = $3
	`, store.ClampProgress(progress), jobID, state.StateActive)
	if err != nil {
		return wrapError(custom_errors.ErrQueueUnavailable, "update progress", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: job %d is not active", custom_errors.ErrInvalidStateTransition, jobID)
	}
	return nil
}

func (r *PostgresJobStore) CountAllJobsGroupedByState(ctx context.Context) (map[state.JobState]int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT state, COUNT(*) AS count
		FROM turn_jobs
		GROUP BY state
	`)
	if err != nil {
		return nil, wrapError(custom_errors.ErrQueueUnavailable, "count jobs", err)
	}
	defer rows.Close()

	result := make(map[state.JobState]int)
	for rows.Next() {
		var st state.JobState
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return nil, wrapError(custom_errors.ErrQueueUnavailable, "count jobs", err)
		}
		result[st] = count
	}

	for _, st := range state.AllStates {
		if _, ok := result[st]; !ok {
			result[st] = 0
		}
	}

	return result, nil
}

func (r *PostgresJobStore) PurgeCompleted(ctx context.Context, finishedBefore time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM turn_jobs WHERE state = $1 AND finished_at < $2`,
		state.StateCompleted, finishedBefore)
	if err != nil {
		return 0, wrapError(custom_errors.ErrQueueUnavailable, "purge completed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *PostgresJobStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return wrapError(custom_errors.ErrQueueUnavailable, "ping", err)
	}
	return nil
}

func (r *PostgresJobStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.Job, error) {
	var job types.Job
	var action sql.NullString
	if err := row.Scan(
		&job.ID,
		&job.Data.ID,
		&job.Data.Name,
		&action,
		&job.State,
		&job.Progress,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		return nil, err
	}
	if action.Valid {
		job.Data.Action = &action.String
	}
	return &job, nil
}
