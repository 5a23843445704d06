package memory

import (
	"context"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"sync"
	"time"
)

// ActionRecord is one appended action, kept for inspection.
type ActionRecord struct {
	PlayerID  int64
	Action    string
	CreatedAt time.Time
}

// PlayerStore is an in-memory PlayerStore used for development and tests.
type PlayerStore struct {
	mu      sync.RWMutex
	nextID  int64
	players map[int64]types.Player
	actions []ActionRecord
	closed  bool
}

var _ store.PlayerStore = (*PlayerStore)(nil)

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{
		players: make(map[int64]types.Player),
	}
}

func (s *PlayerStore) InsertPlayer(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, custom_errors.ErrPersistence
	}
	s.nextID++
	s.players[s.nextID] = types.Player{ID: s.nextID, Name: name}
	return s.nextID, nil
}

func (s *PlayerStore) SelectPlayer(_ context.Context, id int64) (*types.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, custom_errors.ErrPersistence
	}
	p, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	for i := len(s.actions) - 1; i >= 0; i-- {
		if s.actions[i].PlayerID == id {
			p = p.WithAction(s.actions[i].Action)
			break
		}
	}
	return &p, nil
}

func (s *PlayerStore) InsertAction(_ context.Context, playerID int64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return custom_errors.ErrPersistence
	}
	if _, ok := s.players[playerID]; !ok {
		return fmt.Errorf("%w: player %d does not exist", custom_errors.ErrPersistence, playerID)
	}
	s.actions = append(s.actions, ActionRecord{PlayerID: playerID, Action: action, CreatedAt: time.Now().UTC()})
	return nil
}

// Actions returns the action records appended for the player, oldest first.
func (s *PlayerStore) Actions(playerID int64) []ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ActionRecord
	for _, a := range s.actions {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}
	return out
}

func (s *PlayerStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return custom_errors.ErrPersistence
	}
	return nil
}

func (s *PlayerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
