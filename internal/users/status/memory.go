package status

import (
	"context"
	"sync"

	"roster/internal/sentinel"
	"roster/internal/users/models"
)

// InMemory keeps recent pass results in process memory, newest first.
type InMemory struct {
	mu      sync.RWMutex
	results []models.PassResult
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Save(_ context.Context, result models.PassResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append([]models.PassResult{result}, s.results...)
	if len(s.results) > HistorySize {
		s.results = s.results[:HistorySize]
	}
	return nil
}

func (s *InMemory) Last(_ context.Context) (*models.PassResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.results) == 0 {
		return nil, sentinel.ErrNotFound
	}
	r := s.results[0]
	return &r, nil
}

func (s *InMemory) History(_ context.Context, limit int) ([]models.PassResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]models.PassResult, limit)
	copy(out, s.results[:limit])
	return out, nil
}
