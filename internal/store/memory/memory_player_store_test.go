package memory

import (
	"context"
	"errors"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestPlayerStore_InsertAndSelect(t *testing.T) {
	ctx := context.Background()
	s := NewPlayerStore()

	id, err := s.InsertPlayer(ctx, "felipe")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	p, err := s.SelectPlayer(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "felipe", p.Name)
	assert.Nil(t, p.Action)

	missing, err := s.SelectPlayer(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPlayerStore_InsertAction(t *testing.T) {
	ctx := context.Background()
	s := NewPlayerStore()
	id, _ := s.InsertPlayer(ctx, "felipe")

	require.NoError(t, s.InsertAction(ctx, id, "jump"))
	require.NoError(t, s.InsertAction(ctx, id, "duck"))

	actions := s.Actions(id)
	require.Len(t, actions, 2)
	assert.Equal(t, "jump", actions[0].Action)

	p, _ := s.SelectPlayer(ctx, id)
	assert.Equal(t, "duck", p.ActionValue())

	err := s.InsertAction(ctx, 404, "jump")
	assert.True(t, errors.Is(err, custom_errors.ErrPersistence))
}

func TestPlayerStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewPlayerStore()
	require.NoError(t, s.Close())

	_, err := s.InsertPlayer(ctx, "felipe")
	assert.True(t, errors.Is(err, custom_errors.ErrPersistence))
	assert.Error(t, s.Ping(ctx))
}
