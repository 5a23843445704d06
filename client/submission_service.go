package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"log"
)

const tracerName = "github.com/ingluisfelipemunoz/turnqueue/client"

// SubmissionService admits new players into the turn queue.
type SubmissionService struct {
	jobs    store.JobStore
	players store.PlayerStore
}

func NewSubmissionService(jobs store.JobStore, players store.PlayerStore) *SubmissionService {
	return &SubmissionService{jobs: jobs, players: players}
}

// Submit persists the player and enqueues its first turn. The player record
// is written before the job so a failed write never leaves a job behind.
func (s *SubmissionService) Submit(ctx context.Context, input types.PlayerInput) (int64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SubmissionService.Submit")
	defer span.End()

	name, err := validatePlayerName(input.Name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.String("player.name", name))

	playerID, err := s.players.InsertPlayer(ctx, name)
	if err != nil {
		log.Printf("InsertPlayer error: %s", err.Error())
		span.SetStatus(codes.Error, err.Error())
		return 0, asKind(custom_errors.ErrPersistence, err)
	}

	jobID, err := s.jobs.Enqueue(ctx, types.Player{ID: playerID, Name: name})
	if err != nil {
		log.Printf("Enqueue error: %s", err.Error())
		span.SetStatus(codes.Error, err.Error())
		return 0, asKind(custom_errors.ErrQueueUnavailable, err)
	}

	span.SetAttributes(attribute.Int64("player.id", playerID), attribute.Int64("job.id", jobID))
	log.Printf("player %s (%d) added to the queue as job %d", name, playerID, jobID)
	return jobID, nil
}

// asKind wraps err with kind unless it already carries a known sentinel.
func asKind(kind, err error) error {
	for _, known := range []error{
		custom_errors.ErrValidation,
		custom_errors.ErrNotFound,
		custom_errors.ErrPersistence,
		custom_errors.ErrInvalidStateTransition,
		custom_errors.ErrQueueUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", kind, err)
}
