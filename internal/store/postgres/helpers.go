package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/lib/pq"
	"time"
)

// pq error codes used to describe failed writes.
const (
	foreignKeyViolation = "23503"
	notNullViolation    = "23502"
)

// withTimeout bounds a single store call so a slow database eventually fails.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// wrapError tags a database error with the given sentinel and, for pq errors,
// keeps the server's explanation in the message.
func wrapError(sentinel error, op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case foreignKeyViolation, notNullViolation:
			return fmt.Errorf("%w: %s: %s", sentinel, op, pqErr.Message)
		}
		return fmt.Errorf("%w: %s: %s (%s)", sentinel, op, pqErr.Message, pqErr.Code)
	}
	return fmt.Errorf("%w: %s: %v", sentinel, op, err)
}

func stateStrings(states []state.JobState) pq.StringArray {
	out := make(pq.StringArray, 0, len(states))
	for _, s := range states {
		out = append(out, s.String())
	}
	return out
}
