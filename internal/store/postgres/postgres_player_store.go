package postgres

import (
	"context"
	"database/sql"
	"errors"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"time"
)

type postgresPlayerStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresPlayerStore creates a PlayerStore over the shared connection pool.
// Every call is bounded by timeout when it is positive.
func NewPostgresPlayerStore(db *sql.DB, timeout time.Duration) store.PlayerStore {
	return &postgresPlayerStore{db: db, timeout: timeout}
}

func (r *postgresPlayerStore) InsertPlayer(ctx context.Context, name string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	query := `INSERT INTO players (name) VALUES ($1) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, wrapError(custom_errors.ErrPersistence, "insert player", err)
	}
	return id, nil
}

func (r *postgresPlayerStore) SelectPlayer(ctx context.Context, id int64) (*types.Player, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT p.id,
		       p.name,
		       (SELECT a.action FROM actions a WHERE a.player_id = p.id ORDER BY a.id DESC LIMIT 1)
		FROM players p
		WHERE p.id = $1
	`
	player := &types.Player{}
	var action sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&player.ID, &player.Name, &action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // player not found
		}
		return nil, wrapError(custom_errors.ErrPersistence, "select player", err)
	}
	if action.Valid {
		player.Action = &action.String
	}
	return player, nil
}

func (r *postgresPlayerStore) InsertAction(ctx context.Context, playerID int64, action string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `INSERT INTO actions (player_id, action) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, playerID, action); err != nil {
		return wrapError(custom_errors.ErrPersistence, "insert action", err)
	}
	return nil
}

func (r *postgresPlayerStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return wrapError(custom_errors.ErrPersistence, "ping", err)
	}
	return nil
}

func (r *postgresPlayerStore) Close() error {
	return r.db.Close()
}
