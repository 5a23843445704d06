package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/constants"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"log"
	"time"
)

// ActionService attaches actions to the in-flight job of a player.
type ActionService struct {
	jobs       store.JobStore
	players    store.PlayerStore
	retryDelay time.Duration
}

func NewActionService(jobs store.JobStore, players store.PlayerStore) *ActionService {
	return &ActionService{jobs: jobs, players: players, retryDelay: 20 * time.Millisecond}
}

// AttachAction records the action durably and sets it on the player's waiting
// or active job. When that job completes in between, the action moves to the
// successor job so it rides the next turn. Returns the ID of the updated job.
func (s *ActionService) AttachAction(ctx context.Context, playerName, action string) (int64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ActionService.AttachAction")
	defer span.End()

	name, action, err := validateAction(playerName, action)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.String("player.name", name))

	recorded := false
	var lastErr error
	for attempt := 0; attempt < constants.AttachActionAttempts; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, attempt); err != nil {
				return 0, err
			}
		}

		job, err := s.jobs.FindByPlayerName(ctx, name, state.InFlightStates...)
		if err != nil {
			log.Printf("FindByPlayerName error: %s", err.Error())
			return 0, asKind(custom_errors.ErrQueueUnavailable, err)
		}
		if job == nil {
			if !recorded {
				span.SetStatus(codes.Error, "player not found")
				return 0, fmt.Errorf("%w: Player %s not found in the queue.", custom_errors.ErrNotFound, name)
			}
			// between completion and re-enqueue
			lastErr = fmt.Errorf("%w: player %s has no job in flight", custom_errors.ErrInvalidStateTransition, name)
			continue
		}

		if !recorded {
			if err := s.players.InsertAction(ctx, job.Data.ID, action); err != nil {
				log.Printf("InsertAction error: %s", err.Error())
				span.SetStatus(codes.Error, err.Error())
				return 0, asKind(custom_errors.ErrPersistence, err)
			}
			recorded = true
		}

		updated, err := s.jobs.AttachAction(ctx, job.ID, action)
		if err == nil {
			span.SetAttributes(attribute.Int64("job.id", updated.ID))
			log.Printf("action %q attached to job %d of player %s", action, updated.ID, name)
			return updated.ID, nil
		}
		if errors.Is(err, custom_errors.ErrInvalidStateTransition) || errors.Is(err, custom_errors.ErrNotFound) {
			lastErr = err
			continue
		}
		log.Printf("AttachAction error: %s", err.Error())
		return 0, asKind(custom_errors.ErrQueueUnavailable, err)
	}

	span.SetStatus(codes.Error, lastErr.Error())
	return 0, fmt.Errorf("attach action for player %s after %d attempts: %w", name, constants.AttachActionAttempts, lastErr)
}

func (s *ActionService) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * s.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
