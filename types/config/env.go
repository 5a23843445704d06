package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"net"
	"net/url"
	"strconv"
	"time"
)

type envConfig struct {
	Instance          string `env:"TURNQUEUE_INSTANCE"`
	Port              uint   `env:"PORT" envDefault:"3000"`
	QueueDriver       string `env:"QUEUE_DRIVER"`
	PersistenceDriver string `env:"PERSISTENCE_DRIVER"`

	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresHost     string `env:"POSTGRES_HOST"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns     int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`

	RedisURL    string `env:"REDIS_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	TurnDuration       time.Duration `env:"TURN_DURATION" envDefault:"1s"`
	TurnTimeout        time.Duration `env:"TURN_TIMEOUT" envDefault:"30s"`
	PollInterval       time.Duration `env:"POLL_INTERVAL" envDefault:"100ms"`
	PersistenceTimeout time.Duration `env:"PERSISTENCE_TIMEOUT" envDefault:"5s"`
	RetryMaxElapsed    time.Duration `env:"RETRY_MAX_ELAPSED" envDefault:"30s"`
	CompletedRetention time.Duration `env:"COMPLETED_RETENTION" envDefault:"1h"`
	StatsSchedule      string        `env:"STATS_SCHEDULE" envDefault:"@every 30s"`

	TracingEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadFromEnv builds the configuration from environment variables.
// Drivers default to Redis for the queue when REDIS_URL is set and to
// Postgres for players when a database is configured, otherwise to memory.
func LoadFromEnv() (*TurnQueueConfig, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return e.toConfig()
}

func (e envConfig) toConfig() (*TurnQueueConfig, error) {
	instance := e.Instance
	if instance == "" {
		instance = uuid.NewString()
	}

	opts := []ContainerOption{
		WithHTTPPort(e.Port),
		WithTurnDuration(e.TurnDuration),
		WithTurnTimeout(e.TurnTimeout),
		WithPollInterval(e.PollInterval),
		WithPersistenceTimeout(e.PersistenceTimeout),
		WithRetryMaxElapsed(e.RetryMaxElapsed),
		WithCompletedRetention(e.CompletedRetention),
		WithStatsSchedule(e.StatsSchedule),
		WithTracingEndpoint(e.TracingEndpoint),
	}

	dsn := e.postgresURL()
	if dsn != "" {
		opts = append(opts, WithPostgresConfig(PostgresConfig{ConnectionUrl: dsn, MaxOpenConns: e.MaxOpenConns}))
	}

	if e.RedisURL != "" {
		ro, err := redis.ParseURL(e.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = append(opts, WithRedisConfig(RedisConfig{Address: ro.Addr, Password: ro.Password, DB: ro.DB}))
	}

	if e.RabbitMQURL != "" {
		opts = append(opts, WithRabbitMQConfig(RabbitMQConfig{URL: e.RabbitMQURL}))
	}

	queue, err := e.driver(e.QueueDriver, func() StorageDriver {
		switch {
		case e.RedisURL != "":
			return Redis
		case dsn != "":
			return Postgres
		}
		return Memory
	})
	if err != nil {
		return nil, err
	}
	persistence, err := e.driver(e.PersistenceDriver, func() StorageDriver {
		if dsn != "" {
			return Postgres
		}
		return Memory
	})
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithQueueDriver(queue), WithPersistenceDriver(persistence))

	return NewTurnQueueConfig(instance, opts...)
}

func (e envConfig) driver(value string, fallback func() StorageDriver) (StorageDriver, error) {
	if value == "" {
		return fallback(), nil
	}
	return ParseStorageDriver(value)
}

// postgresURL prefers DATABASE_URL and falls back to the POSTGRES_* variables.
func (e envConfig) postgresURL() string {
	if e.DatabaseURL != "" {
		return e.DatabaseURL
	}
	if e.PostgresHost == "" || e.PostgresDB == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(e.PostgresHost, e.PostgresPort),
		Path:     "/" + e.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(e.PostgresSSLMode),
	}
	if e.PostgresUser != "" {
		if e.PostgresPassword != "" {
			u.User = url.UserPassword(e.PostgresUser, e.PostgresPassword)
		} else {
			u.User = url.User(e.PostgresUser)
		}
	}
	return u.String()
}

// Addr returns the HTTP listen address.
func (c *TurnQueueConfig) Addr() string {
	return ":" + strconv.FormatUint(uint64(c.HTTPPort), 10)
}
