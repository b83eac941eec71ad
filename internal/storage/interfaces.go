package storage

import (
	"context"
	"time"

	"chain-fraud-lab/internal/domain"
)

// EventStore provides access to normalized events handed over by the fetcher.
// Stores are append-only: events are keyed by Event.ID and never updated.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByAddress retrieves events in which addr is sender, recipient or
	// contract, within [fromBlock, toBlock] (inclusive; toBlock 0 means no
	// upper bound), in canonical order. An empty addr matches every event.
	GetByAddress(ctx context.Context, addr string, fromBlock, toBlock uint64) ([]*domain.Event, error)
}

// ReportStore persists analysis reports. Reports are immutable once saved.
type ReportStore interface {
	// Save stores a report. Returns ErrDuplicateKey if the id exists.
	Save(ctx context.Context, r *domain.Report) error

	// Get returns the report with the given id. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// ListByEntity returns up to limit reports for entity, newest first.
	ListByEntity(ctx context.Context, entity string, limit int) ([]*domain.Report, error)
}

// CaseStore keeps investigation cases. Unlike events and reports, a case
// changes as addresses and transactions are attached to it.
type CaseStore interface {
	// Create stores a new case. Returns ErrDuplicateKey if the id exists.
	Create(ctx context.Context, c *domain.Case) error
	// Get returns the case with its addresses and transactions.
	// Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.Case, error)
	// List returns every case without its members, newest first.
	List(ctx context.Context) ([]*domain.Case, error)
	// AddAddresses upserts addresses by address, sets UpdatedAt to at and
	// returns the number written. Returns ErrNotFound if the case is missing.
	AddAddresses(ctx context.Context, id string, addrs []domain.CaseAddress, at time.Time) (int, error)
	// AddTransactions upserts transactions by hash, sets UpdatedAt to at and
	// returns the number written. Returns ErrNotFound if the case is missing.
	AddTransactions(ctx context.Context, id string, txs []domain.CaseTransaction, at time.Time) (int, error)
}
