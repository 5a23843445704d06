package mocks

import (
	"context"
	"github.com/ingluisfelipemunoz/turnqueue/types"
)

// MockPlayerStore is a mock implementation of store.PlayerStore for testing.
type MockPlayerStore struct {
	InsertPlayerFunc func(ctx context.Context, name string) (int64, error)
	SelectPlayerFunc func(ctx context.Context, id int64) (*types.Player, error)
	InsertActionFunc func(ctx context.Context, playerID int64, action string) error
	PingFunc         func(ctx context.Context) error
	CloseFunc        func() error
}

func (m *MockPlayerStore) InsertPlayer(ctx context.Context, name string) (int64, error) {
	if m.InsertPlayerFunc != nil {
		return m.InsertPlayerFunc(ctx, name)
	}
	return 0, nil
}

func (m *MockPlayerStore) SelectPlayer(ctx context.Context, id int64) (*types.Player, error) {
	if m.SelectPlayerFunc != nil {
		return m.SelectPlayerFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockPlayerStore) InsertAction(ctx context.Context, playerID int64, action string) error {
	if m.InsertActionFunc != nil {
		return m.InsertActionFunc(ctx, playerID, action)
	}
	return nil
}

func (m *MockPlayerStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockPlayerStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
