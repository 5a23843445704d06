package store

import (
	"context"
	"github.com/ingluisfelipemunoz/turnqueue/types"
)

// PlayerStore is the durable record of players and the actions they submit.
type PlayerStore interface {
	// InsertPlayer persists a new player and returns its durable ID.
	InsertPlayer(ctx context.Context, name string) (int64, error)

	// SelectPlayer looks a player up by ID. Returns nil when absent.
	SelectPlayer(ctx context.Context, id int64) (*types.Player, error)

	// InsertAction appends an action record for the player.
	InsertAction(ctx context.Context, playerID int64, action string) error

	Ping(ctx context.Context) error

	Close() error
}
