package app

import (
	"database/sql"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/internal/message_broaker"
	"github.com/redis/go-redis/v9"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject custom connections instead of creating from config
	db     *sql.DB
	redis  *redis.Client
	broker message_broaker.MessageBroker

	turnAction     client.TurnAction
	skipMigrations bool
}

// WithDB injects a custom database connection. Useful for testing.
func WithDB(db *sql.DB) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

// WithRedis injects a custom Redis client. Useful for testing.
func WithRedis(redis *redis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

// WithMessageBroker injects the broker turn events are published to.
func WithMessageBroker(b message_broaker.MessageBroker) ContainerOption {
	return func(c *containerConfig) {
		c.broker = b
	}
}

// WithTurnAction replaces the simulated turn.
func WithTurnAction(action client.TurnAction) ContainerOption {
	return func(c *containerConfig) {
		c.turnAction = action
	}
}

func WithoutMigrations() ContainerOption {
	return func(c *containerConfig) {
		c.skipMigrations = true
	}
}
