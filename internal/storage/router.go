package storage

import (
	"context"
	"fmt"
	"sort"

	"chain-fraud-lab/internal/domain"
)

// Router dispatches events to a store per event kind and merges reads.
// Transfers and logs typically live in Postgres while swaps, which carry
// prices, live in ClickHouse.
type Router struct {
	byKind map[domain.EventKind]EventStore
	stores []EventStore
}

// NewRouter creates a router. Every kind must map to a store.
func NewRouter(byKind map[domain.EventKind]EventStore) (*Router, error) {
	r := &Router{byKind: make(map[domain.EventKind]EventStore, len(byKind))}
	for _, kind := range []domain.EventKind{domain.EventKindTransfer, domain.EventKindLog, domain.EventKindSwap} {
		s, ok := byKind[kind]
		if !ok || s == nil {
			return nil, fmt.Errorf("%w: no store for %s events", ErrInvalidInput, kind)
		}
		r.byKind[kind] = s
		if !r.hasStore(s) {
			r.stores = append(r.stores, s)
		}
	}
	return r, nil
}

func (r *Router) hasStore(s EventStore) bool {
	for _, existing := range r.stores {
		if existing == s {
			return true
		}
	}
	return false
}

// Insert routes the event by kind.
func (r *Router) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil {
		return ErrInvalidInput
	}
	s, ok := r.byKind[e.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, e.Kind)
	}
	return s.Insert(ctx, e)
}

// InsertBulk groups events by target store. Atomicity holds per store only.
func (r *Router) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[EventStore][]*domain.Event)
	for _, e := range events {
		if e == nil {
			return ErrInvalidInput
		}
		s, ok := r.byKind[e.Kind]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedKind, e.Kind)
		}
		groups[s] = append(groups[s], e)
	}

	for _, s := range r.stores {
		batch := groups[s]
		if len(batch) == 0 {
			continue
		}
		if err := s.InsertBulk(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// GetByAddress queries every store and merges results in canonical order.
func (r *Router) GetByAddress(ctx context.Context, addr string, fromBlock, toBlock uint64) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, s := range r.stores {
		events, err := s.GetByAddress(ctx, addr, fromBlock, toBlock)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}
	SortCanonical(out)
	return out, nil
}

// SortCanonical orders events by (block_number, tx_index, log_index, seq) ASC.
func SortCanonical(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex < b.TxIndex
		}
		if a.LogIndex != b.LogIndex {
			return a.LogIndex < b.LogIndex
		}
		return a.Seq < b.Seq
	})
}

// InRange reports whether block lies in [fromBlock, toBlock]; toBlock 0 is unbounded.
func InRange(block, fromBlock, toBlock uint64) bool {
	if block < fromBlock {
		return false
	}
	return toBlock == 0 || block <= toBlock
}

var _ EventStore = (*Router)(nil)
