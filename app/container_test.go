package app

import (
	"context"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/internal/lock"
	"github.com/ingluisfelipemunoz/turnqueue/internal/message_broaker"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/memory"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/postgres"
	redisstore "github.com/ingluisfelipemunoz/turnqueue/internal/store/redis"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"github.com/ingluisfelipemunoz/turnqueue/types/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func instantTurn(ctx context.Context, _ types.Player, report func(int)) error {
	report(100)
	return nil
}

func TestNewContainer_Memory(t *testing.T) {
	cfg, err := config.NewTurnQueueConfig("test")
	require.NoError(t, err)

	c, err := NewContainer(context.Background(), cfg, WithTurnAction(instantTurn))
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &memory.JobStore{}, c.JobStore)
	assert.IsType(t, &memory.PlayerStore{}, c.PlayerStore)
	assert.IsType(t, &lock.LocalLockManager{}, c.LockManager)
	assert.IsType(t, &message_broaker.ChannelBroker{}, c.MessageBroker)
	require.NotNil(t, c.RouteHandler)
	assert.Equal(t, ":3000", c.RouteHandler.Addr)
	assert.NotNil(t, c.Scheduler)
}

func TestNewContainer_FullCycle(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.NewTurnQueueConfig("test")
	require.NoError(t, err)

	broker := message_broaker.NewChannelBroker(10)
	c, err := NewContainer(ctx, cfg, WithTurnAction(instantTurn), WithMessageBroker(broker))
	require.NoError(t, err)
	defer c.Close()

	jobID, err := c.Submissions.Submit(ctx, types.PlayerInput{Name: "felipe"})
	require.NoError(t, err)
	_, err = c.Actions.AttachAction(ctx, "felipe", "jump")
	require.NoError(t, err)

	res, err := c.TurnProcessor.ProcessNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, types.TurnSucceeded, res.Outcome)

	done, err := c.Statuses.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, state.StateCompleted, done.State)

	next, err := c.Statuses.GetStatus(ctx, res.NextJobID)
	require.NoError(t, err)
	assert.Equal(t, state.StateWaiting, next.State)
	assert.Equal(t, "jump", next.Player.ActionValue())
}

func TestNewContainer_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg, err := config.NewTurnQueueConfig("test",
		config.WithQueueDriver(config.Redis),
		config.WithRedisConfig(config.RedisConfig{Address: mr.Addr()}),
	)
	require.NoError(t, err)

	c, err := NewContainer(context.Background(), cfg, WithRedis(rdb))
	require.NoError(t, err)
	assert.IsType(t, &redisstore.RedisJobStore{}, c.JobStore)

	_, err = c.Submissions.Submit(context.Background(), types.PlayerInput{Name: "felipe"})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestNewContainer_PostgresInjected(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg, err := config.NewTurnQueueConfig("test",
		config.WithQueueDriver(config.Postgres),
		config.WithPersistenceDriver(config.Postgres),
		config.WithPostgresConfig(config.PostgresConfig{ConnectionUrl: "postgres://localhost/turns"}),
	)
	require.NoError(t, err)

	c, err := NewContainer(context.Background(), cfg, WithDB(conn), WithoutMigrations())
	require.NoError(t, err)

	assert.IsType(t, &postgres.PostgresJobStore{}, c.JobStore)
	assert.IsType(t, &lock.PostgresDistributedLockManager{}, c.LockManager)
	assert.IsType(t, &client.TurnProcessor{}, c.TurnProcessor)

	mock.ExpectClose()
	assert.NoError(t, c.Close())
}
