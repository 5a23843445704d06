package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/internal/db"
	"github.com/ingluisfelipemunoz/turnqueue/internal/lock"
	"github.com/ingluisfelipemunoz/turnqueue/internal/message_broaker"
	"github.com/ingluisfelipemunoz/turnqueue/internal/monitor"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/memory"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/postgres"
	redisstore "github.com/ingluisfelipemunoz/turnqueue/internal/store/redis"
	"github.com/ingluisfelipemunoz/turnqueue/types/config"
	"github.com/ingluisfelipemunoz/turnqueue/web"
	"github.com/redis/go-redis/v9"
	"log"
)

// Container holds all application dependencies. It is the single source of truth
// for dependency injection and ensures connections and services are created once.
type Container struct {
	Config *config.TurnQueueConfig

	// Storage connections (created once, shared by all stores)
	DB    *sql.DB
	Redis *redis.Client

	// Stores (implement interfaces for testability)
	JobStore    store.JobStore
	PlayerStore store.PlayerStore

	// Infrastructure
	LockManager   lock.DistributedLockManager
	MessageBroker message_broaker.MessageBroker
	Metrics       *monitor.Metrics
	Scheduler     *monitor.Scheduler

	// Services
	Submissions   *client.SubmissionService
	Actions       *client.ActionService
	Statuses      *client.StatusService
	TurnProcessor *client.TurnProcessor
	RouteHandler  *web.HttpRouteHandler
}

// NewContainer creates and wires all dependencies. Single entry point for DI.
// Call this once per application lifecycle.
// Pass optional WithDB, WithRedis to inject connections for testing.
func NewContainer(ctx context.Context, cfg *config.TurnQueueConfig, opts ...ContainerOption) (*Container, error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	c := &Container{Config: cfg, DB: opt.db, Redis: opt.redis, MessageBroker: opt.broker}
	if err := c.initStorageConnections(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c.LockManager = createDistributedLockManager(c.DB)

	if c.DB != nil && !opt.skipMigrations {
		if err := db.Migrate(ctx, c.DB, c.LockManager); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.JobStore = createJobStore(cfg, c.DB, c.Redis)
	c.PlayerStore = createPlayerStore(cfg, c.DB)

	switch {
	case c.MessageBroker != nil:
		// injected
	case cfg.RabbitMQConfig != nil:
		broker, err := message_broaker.NewRabbitMQ(
			cfg.RabbitMQConfig.URL,
			cfg.RabbitMQConfig.Exchange,
			cfg.RabbitMQConfig.Queue,
			cfg.RabbitMQConfig.BindingKey,
		)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init rabbitmq: %w", err)
		}
		c.MessageBroker = broker
	default:
		c.MessageBroker = message_broaker.NewChannelBroker(0)
	}

	c.Metrics = monitor.NewMetrics()
	scheduler, err := monitor.NewScheduler(c.JobStore, c.Metrics, cfg.StatsSchedule, cfg.CompletedRetention)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Scheduler = scheduler

	c.Submissions = client.NewSubmissionService(c.JobStore, c.PlayerStore)
	c.Actions = client.NewActionService(c.JobStore, c.PlayerStore)
	c.Statuses = client.NewStatusService(c.JobStore)

	turnAction := opt.turnAction
	if turnAction == nil {
		turnAction = client.SimulatedTurn(cfg.TurnDuration)
	}
	processorOpts := []client.ProcessorOption{
		client.WithTurnAction(turnAction),
		client.WithPollInterval(cfg.PollInterval),
		client.WithTurnTimeout(cfg.TurnTimeout),
		client.WithRetryMaxElapsed(cfg.RetryMaxElapsed),
		client.WithLock(c.LockManager),
		client.WithMetrics(c.Metrics),
	}
	processorOpts = append(processorOpts, client.WithEventPublisher(c.MessageBroker))
	c.TurnProcessor = client.NewTurnProcessor(c.JobStore, processorOpts...)

	c.RouteHandler = web.NewRouteHandler(
		c.Submissions,
		c.Actions,
		c.Statuses,
		c.Metrics.Handler(),
		map[string]web.Pinger{"jobs": c.JobStore, "players": c.PlayerStore},
		cfg.Addr(),
	)

	log.Printf("container ready: instance=%s queue=%s persistence=%s", cfg.Instance, cfg.QueueDriver, cfg.PersistenceDriver)
	return c, nil
}

// initStorageConnections creates the connections the configured drivers need
// unless they were injected.
func (c *Container) initStorageConnections(ctx context.Context) error {
	cfg := c.Config
	needsPostgres := cfg.QueueDriver == config.Postgres || cfg.PersistenceDriver == config.Postgres
	if needsPostgres && c.DB == nil {
		conn, err := db.Open(ctx, cfg.PostgresConfig.ConnectionUrl, cfg.PostgresConfig.MaxOpenConns)
		if err != nil {
			return err
		}
		c.DB = conn
	}

	if cfg.QueueDriver == config.Redis && c.Redis == nil {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	return nil
}

func createJobStore(cfg *config.TurnQueueConfig, conn *sql.DB, rdb *redis.Client) store.JobStore {
	switch cfg.QueueDriver {
	case config.Postgres:
		return postgres.NewPostgresJobStore(conn, cfg.PersistenceTimeout)
	case config.Redis:
		return redisstore.NewRedisJobStore(rdb)
	default:
		return memory.NewJobStore()
	}
}

func createPlayerStore(cfg *config.TurnQueueConfig, conn *sql.DB) store.PlayerStore {
	if cfg.PersistenceDriver == config.Postgres {
		return postgres.NewPostgresPlayerStore(conn, cfg.PersistenceTimeout)
	}
	return memory.NewPlayerStore()
}

func createDistributedLockManager(conn *sql.DB) lock.DistributedLockManager {
	if conn != nil {
		return lock.NewPostgresDistributedLockManager(conn)
	}
	return lock.NewLocalLockManager()
}

// Close releases every connection the container holds.
func (c *Container) Close() error {
	var errs []error
	if c.MessageBroker != nil {
		errs = append(errs, c.MessageBroker.Close())
	}
	if c.JobStore != nil {
		errs = append(errs, c.JobStore.Close())
	}
	if c.PlayerStore != nil {
		errs = append(errs, c.PlayerStore.Close())
	}
	if c.Redis != nil {
		// a redis job store already closed its client
		if _, ok := c.JobStore.(*redisstore.RedisJobStore); !ok {
			errs = append(errs, c.Redis.Close())
		}
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
