// Package memory is a process-local MessageStore used by tests and by
// STORE_DRIVER=memory for local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/evp-nightshift/messenger/internal/domain"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Message
}

func New() *Store {
	return &Store{rows: make(map[int64]*domain.Message)}
}

func (s *Store) Create(_ context.Context, msg *domain.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row := msg.Clone()
	row.ID = s.nextID
	if row.Status == "" {
		row.Status = domain.StatusPending
	}
	s.rows[row.ID] = row
	return row.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return row.Clone(), nil
}

func (s *Store) ListByStatus(_ context.Context, status domain.Status) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Message
	for _, row := range s.rows {
		if row.Status == status {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Transition(_ context.Context, id int64, from, to domain.Status) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

// Len is the number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
