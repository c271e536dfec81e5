package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"roster/internal/sentinel"
	"roster/internal/users/models"
)

// InMemory keeps users in a map for tests and local runs without Postgres.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*models.StoredUser
	nextID int64
}

var _ UserStore = (*InMemory)(nil)

// NewInMemory creates an empty in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*models.StoredUser)}
}

func (s *InMemory) FindByUserID(_ context.Context, userID string) (*models.StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) Insert(_ context.Context, user models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.UserID]; exists {
		return 0, fmt.Errorf("user %s: %w", user.UserID, sentinel.ErrAlreadyExists)
	}
	s.nextID++
	s.users[user.UserID] = &models.StoredUser{ID: s.nextID, User: user}
	return s.nextID, nil
}

func (s *InMemory) UpdateByID(_ context.Context, id int64, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.users {
		if existing.ID != id {
			continue
		}
		if key != user.UserID {
			return fmt.Errorf("update user %d: user_id is immutable: %w", id, sentinel.ErrInvalidInput)
		}
		existing.User = user
		return nil
	}
	return sentinel.ErrNotFound
}

// ListAll returns users ordered by user_id.
func (s *InMemory) ListAll(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
