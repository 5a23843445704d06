package config

import "time"

const (
	DefaultHTTPPort           = 3000
	DefaultQueueDriver        = Memory
	DefaultPersistenceDriver  = Memory
	DefaultTurnDuration       = time.Second
	DefaultTurnTimeout        = 30 * time.Second
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultPersistenceTimeout = 5 * time.Second
	DefaultRetryMaxElapsed    = 30 * time.Second
	DefaultCompletedRetention = time.Hour
	DefaultStatsSchedule      = "@every 30s"
	DefaultMaxOpenConns       = 10

	// MinOpenConns leaves room for the turn processor lock and the migration
	// lock, which each pin a connection, plus one for store calls.
	MinOpenConns = 3
)
