package memory

import (
	"context"
	"sort"
	"sync"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Report
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.Report),
	}
}

// Save stores a report. Returns ErrDuplicateKey if exists.
func (s *ReportStore) Save(_ context.Context, r *domain.Report) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ID] = &copy
	return nil
}

// Get returns a report by id.
func (s *ReportStore) Get(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// ListByEntity returns up to limit reports for entity, newest first.
func (s *ReportStore) ListByEntity(_ context.Context, entity string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Report
	for _, r := range s.data {
		if r.Entity == entity {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAt.Equal(result[j].GeneratedAt) {
			return result[i].GeneratedAt.After(result[j].GeneratedAt)
		}
		return result[i].ID < result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.ReportStore = (*ReportStore)(nil)
