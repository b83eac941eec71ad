package memory

import (
	"context"
	"sync"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if exists.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.ID] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		copy := *e
		s.data[e.ID] = &copy
	}

	return nil
}

// GetByAddress retrieves events involving addr within the block range, in canonical order.
func (s *EventStore) GetByAddress(_ context.Context, addr string, fromBlock, toBlock uint64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if addr != "" && !e.Involves(addr) {
			continue
		}
		if !storage.InRange(e.BlockNumber, fromBlock, toBlock) {
			continue
		}
		copy := *e
		result = append(result, &copy)
	}

	storage.SortCanonical(result)
	return result, nil
}

var _ storage.EventStore = (*EventStore)(nil)
