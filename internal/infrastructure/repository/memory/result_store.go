package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

// ResultStore keeps processing results for the lifetime of the process.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

// MarkPending never moves a completed document back to pending.
func (s *ResultStore) MarkPending(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.results[documentID]
	if ok && !current.Status.Advances(domain.StatusPending) {
		return nil
	}
	s.results[documentID] = domain.PendingResult()
	return nil
}

func (s *ResultStore) Store(_ context.Context, result domain.FilterResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.DocumentID] = domain.CompletedResult(result.Text, result.Threshold)
	return nil
}

func (s *ResultStore) Get(_ context.Context, documentID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[documentID]
	if !ok {
		return domain.NotFoundResult(), nil
	}
	return result, nil
}
