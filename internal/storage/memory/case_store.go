package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

type caseEntry struct {
	c     domain.Case
	addrs map[string]domain.CaseAddress
	txs   map[string]domain.CaseTransaction
}

// CaseStore is an in-memory implementation of storage.CaseStore.
type CaseStore struct {
	mu   sync.RWMutex
	data map[string]*caseEntry
}

// NewCaseStore creates a new in-memory case store.
func NewCaseStore() *CaseStore {
	return &CaseStore{
		data: make(map[string]*caseEntry),
	}
}

// Create stores a case. Members passed in c are ignored.
func (s *CaseStore) Create(_ context.Context, c *domain.Case) error {
	if c == nil || c.ID == "" || c.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}

	header := *c
	header.Addresses = nil
	header.Transactions = nil
	s.data[c.ID] = &caseEntry{
		c:     header,
		addrs: make(map[string]domain.CaseAddress),
		txs:   make(map[string]domain.CaseTransaction),
	}
	return nil
}

// Get returns a case with its members sorted by address and tx hash.
func (s *CaseStore) Get(_ context.Context, id string) (*domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	c := entry.c
	for _, a := range entry.addrs {
		a.Tags = append([]string(nil), a.Tags...)
		c.Addresses = append(c.Addresses, a)
	}
	sort.Slice(c.Addresses, func(i, j int) bool { return c.Addresses[i].Address < c.Addresses[j].Address })
	for _, tx := range entry.txs {
		c.Transactions = append(c.Transactions, tx)
	}
	sort.Slice(c.Transactions, func(i, j int) bool { return c.Transactions[i].TxHash < c.Transactions[j].TxHash })
	return &c, nil
}

// List returns case headers, newest first.
func (s *CaseStore) List(_ context.Context) ([]*domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Case, 0, len(s.data))
	for _, entry := range s.data {
		c := entry.c
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// AddAddresses upserts addresses into the case.
func (s *CaseStore) AddAddresses(_ context.Context, id string, addrs []domain.CaseAddress, at time.Time) (int, error) {
	for _, a := range addrs {
		if a.Address == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	for _, a := range addrs {
		a.Tags = append([]string(nil), a.Tags...)
		entry.addrs[a.Address] = a
	}
	entry.c.UpdatedAt = at
	return len(addrs), nil
}

// AddTransactions upserts transactions into the case.
func (s *CaseStore) AddTransactions(_ context.Context, id string, txs []domain.CaseTransaction, at time.Time) (int, error) {
	for _, tx := range txs {
		if tx.TxHash == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	for _, tx := range txs {
		entry.txs[tx.TxHash] = tx
	}
	entry.c.UpdatedAt = at
	return len(txs), nil
}

var _ storage.CaseStore = (*CaseStore)(nil)
