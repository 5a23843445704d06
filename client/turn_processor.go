package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v5"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/constants"
	"github.com/ingluisfelipemunoz/turnqueue/internal/lock"
	"github.com/ingluisfelipemunoz/turnqueue/internal/message_broaker"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"log"
	"sync"
	"time"
)

const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultTurnDuration    = time.Second
	DefaultTurnTimeout     = 30 * time.Second
	DefaultRetryMaxElapsed = 30 * time.Second

	// actionGracePeriod is how long a timed out action may take to return
	// before the next turn starts without it.
	actionGracePeriod = time.Second
	resultBuffer      = 1000
)

// TurnAction executes one player's turn. report may be called with increasing
// progress values between 0 and 100. An action must return once ctx is done;
// the processor waits a short grace period for it after the turn timeout.
type TurnAction func(ctx context.Context, player types.Player, report func(progress int)) error

// TurnMetrics records processed turns.
type TurnMetrics interface {
	ObserveTurn(result types.TurnResult)
}

type ProcessorOption func(*TurnProcessor)

func WithTurnAction(action TurnAction) ProcessorOption {
	return func(p *TurnProcessor) {
		if action != nil {
			p.action = action
		}
	}
}

func WithPollInterval(d time.Duration) ProcessorOption {
	return func(p *TurnProcessor) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

func WithTurnTimeout(d time.Duration) ProcessorOption {
	return func(p *TurnProcessor) {
		if d > 0 {
			p.turnTimeout = d
		}
	}
}

func WithRetryMaxElapsed(d time.Duration) ProcessorOption {
	return func(p *TurnProcessor) {
		if d > 0 {
			p.retryMaxElapsed = d
		}
	}
}

// WithEventPublisher publishes every TurnResult as JSON with routing key turn.<outcome>.
func WithEventPublisher(broker message_broaker.MessageBroker) ProcessorOption {
	return func(p *TurnProcessor) {
		p.broker = broker
	}
}

func WithLock(l lock.DistributedLockManager) ProcessorOption {
	return func(p *TurnProcessor) {
		p.lock = l
	}
}

func WithMetrics(m TurnMetrics) ProcessorOption {
	return func(p *TurnProcessor) {
		p.metrics = m
	}
}

// WithResultHook registers a callback run by the result publisher for every turn.
func WithResultHook(hook func(types.TurnResult)) ProcessorOption {
	return func(p *TurnProcessor) {
		if hook != nil {
			p.hooks = append(p.hooks, hook)
		}
	}
}

// TurnProcessor is the single consumer of the job queue. Each iteration claims
// the earliest waiting job, runs the player's turn, completes the job and puts
// the same player back at the tail of the queue.
type TurnProcessor struct {
	jobs            store.JobStore
	lock            lock.DistributedLockManager
	broker          message_broaker.MessageBroker
	metrics         TurnMetrics
	hooks           []func(types.TurnResult)
	action          TurnAction
	pollInterval    time.Duration
	turnTimeout     time.Duration
	retryMaxElapsed time.Duration
	now             func() time.Time

	// players whose job completed but whose next job could not be created yet
	mu      sync.Mutex
	pending []types.Player
}

func NewTurnProcessor(jobs store.JobStore, opts ...ProcessorOption) *TurnProcessor {
	p := &TurnProcessor{
		jobs:            jobs,
		action:          SimulatedTurn(DefaultTurnDuration),
		pollInterval:    DefaultPollInterval,
		turnTimeout:     DefaultTurnTimeout,
		retryMaxElapsed: DefaultRetryMaxElapsed,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the turn loop until ctx is done and returns ctx.Err().
// Turn failures never stop the loop.
func (p *TurnProcessor) Start(ctx context.Context) error {
	if p.lock != nil {
		if err := p.lock.Acquire(ctx, constants.TurnProcessorLock); err != nil {
			return fmt.Errorf("acquire turn processor lock: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := p.lock.Release(releaseCtx, constants.TurnProcessorLock); err != nil {
				log.Printf("Release turn processor lock error: %s", err.Error())
			}
		}()
	}

	results := make(chan types.TurnResult, resultBuffer)
	done := p.startResultPublisher(ctx, results)
	defer func() {
		close(results)
		<-done
		p.alertPending()
	}()

	log.Println("turn processor started")
	for {
		if ctx.Err() != nil {
			log.Println("turn processor stopped")
			return ctx.Err()
		}

		result, err := p.ProcessNext(ctx)
		if err != nil {
			log.Printf("ProcessNext error: %s", err.Error())
		}
		if result != nil {
			results <- *result
			continue
		}
		p.sleep(ctx)
	}
}

// ProcessNext runs one iteration of the loop. It returns nil without error
// when no job is waiting. Players left without a next job by an earlier
// iteration are re-enqueued before anything is claimed.
func (p *TurnProcessor) ProcessNext(ctx context.Context) (*types.TurnResult, error) {
	if err := p.requeuePending(ctx); err != nil {
		return nil, err
	}

	job, err := p.jobs.DequeueNext(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "TurnProcessor.turn", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job.id", job.ID),
		attribute.Int64("player.id", job.Data.ID),
		attribute.String("player.name", job.Data.Name),
	)

	result := &types.TurnResult{
		JobID:      job.ID,
		PlayerID:   job.Data.ID,
		PlayerName: job.Data.Name,
		Action:     job.Data.ActionValue(),
		Outcome:    types.TurnSucceeded,
		StartedAt:  p.now(),
	}

	if err := p.runTurn(ctx, *job); err != nil {
		log.Printf("turn for job %d of player %s failed: %s", job.ID, job.Data.Name, err.Error())
		result.Outcome = types.TurnFailed
		result.Err = err
	}

	// finish the cycle even when shutdown started during the turn
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.retryMaxElapsed)
	defer cancel()

	completed, err := p.complete(finishCtx, job.ID)
	if err != nil {
		log.Printf("ALERT: job %d of player %s could not be completed and stays active: %s", job.ID, job.Data.Name, err.Error())
		p.stall(result, err)
		span.SetStatus(codes.Error, err.Error())
		return result, nil
	}
	result.Action = completed.Data.ActionValue()

	nextID, err := p.enqueue(finishCtx, completed.Data)
	if err != nil {
		log.Printf("ALERT: player %s was not re-enqueued after job %d, retrying before the next turn: %s", completed.Data.Name, job.ID, err.Error())
		p.addPending(completed.Data)
		p.stall(result, err)
		span.SetStatus(codes.Error, err.Error())
		return result, nil
	}

	result.NextJobID = nextID
	result.FinishedAt = p.now()
	if result.Err != nil {
		result.Error = result.Err.Error()
		span.SetStatus(codes.Error, result.Error)
	}
	return result, nil
}

func (p *TurnProcessor) addPending(player types.Player) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, player)
}

// requeuePending puts pending players back at the tail of the queue in the
// order their jobs completed. It stops at the first failure.
func (p *TurnProcessor) requeuePending(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) > 0 {
		player := p.pending[0]
		jobID, err := p.jobs.Enqueue(ctx, player)
		if err != nil {
			return fmt.Errorf("re-enqueue player %s: %w", player.Name, err)
		}
		log.Printf("player %s re-enqueued as job %d", player.Name, jobID)
		p.pending = p.pending[1:]
	}
	return nil
}

func (p *TurnProcessor) alertPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, player := range p.pending {
		log.Printf("ALERT: player %s (id %d) has no job in the queue", player.Name, player.ID)
	}
}

func (p *TurnProcessor) stall(result *types.TurnResult, err error) {
	result.Outcome = types.TurnStalled
	result.Err = errors.Join(result.Err, err)
	result.Error = result.Err.Error()
	result.FinishedAt = p.now()
}

// runTurn bounds the action by the turn timeout and turns panics into errors.
func (p *TurnProcessor) runTurn(ctx context.Context, job types.Job) error {
	ctx, cancel := context.WithTimeout(ctx, p.turnTimeout)
	defer cancel()

	report := func(progress int) {
		if ctx.Err() != nil {
			return
		}
		if err := p.jobs.UpdateProgress(ctx, job.ID, progress); err != nil {
			log.Printf("UpdateProgress error: %s", err.Error())
		}
	}

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic in turn of job %d: %v", job.ID, r)
			}
		}()
		errCh <- p.action(ctx, job.Data, report)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := time.NewTimer(actionGracePeriod)
	defer grace.Stop()
	select {
	case <-errCh:
	case <-grace.C:
		log.Printf("turn action of job %d still running %s after it was cancelled", job.ID, actionGracePeriod)
	}
	return fmt.Errorf("turn of job %d: %w", job.ID, ctx.Err())
}

func (p *TurnProcessor) complete(ctx context.Context, jobID int64) (*types.Job, error) {
	return backoff.Retry(ctx, func() (*types.Job, error) {
		job, err := p.jobs.Complete(ctx, jobID)
		if errors.Is(err, custom_errors.ErrInvalidStateTransition) {
			return nil, backoff.Permanent(err)
		}
		if err == nil && job == nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: job %d vanished on completion", custom_errors.ErrInvalidStateTransition, jobID))
		}
		return job, err
	}, p.retryOptions("Complete")...)
}

func (p *TurnProcessor) enqueue(ctx context.Context, player types.Player) (int64, error) {
	return backoff.Retry(ctx, func() (int64, error) {
		return p.jobs.Enqueue(ctx, player)
	}, p.retryOptions("Enqueue")...)
}

func (p *TurnProcessor) retryOptions(op string) []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(p.retryMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("%s error: %s, retrying in %s", op, err.Error(), next)
		}),
	}
}

func (p *TurnProcessor) sleep(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// startResultPublisher drains results until the channel is closed.
func (p *TurnProcessor) startResultPublisher(ctx context.Context, results <-chan types.TurnResult) <-chan struct{} {
	done := make(chan struct{})
	publishCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		for res := range results {
			p.publish(publishCtx, res)
		}
	}()
	return done
}

func (p *TurnProcessor) publish(ctx context.Context, res types.TurnResult) {
	switch res.Outcome {
	case types.TurnSucceeded:
		log.Printf("turn of player %s done: job %d completed, job %d waiting (%s)", res.PlayerName, res.JobID, res.NextJobID, res.Duration())
	case types.TurnFailed:
		log.Printf("turn of player %s failed: job %d completed, job %d waiting: %s", res.PlayerName, res.JobID, res.NextJobID, res.Error)
	case types.TurnStalled:
		log.Printf("turn of player %s stalled on job %d: %s", res.PlayerName, res.JobID, res.Error)
	default:
		log.Printf("unknown turn outcome: %s", res.Outcome)
	}

	if p.metrics != nil {
		p.metrics.ObserveTurn(res)
	}
	for _, hook := range p.hooks {
		hook(res)
	}

	if p.broker == nil {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		log.Printf("marshal turn result error: %s", err.Error())
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.broker.Publish(pubCtx, "turn."+string(res.Outcome), body); err != nil {
		log.Printf("Publish turn result error: %s", err.Error())
	}
}

// SimulatedTurn returns an action that takes d to run and reports progress
// in ten even steps up to 100.
func SimulatedTurn(d time.Duration) TurnAction {
	const steps = 10
	return func(ctx context.Context, _ types.Player, report func(int)) error {
		step := d / steps
		for i := 1; i <= steps; i++ {
			timer := time.NewTimer(step)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			report(i * constants.MaxProgress / steps)
		}
		return nil
	}
}
