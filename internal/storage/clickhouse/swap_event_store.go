package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// SwapEventStore implements storage.EventStore for swap events using ClickHouse.
// MergeTree does not enforce uniqueness, so ids are checked before insert.
type SwapEventStore struct {
	conn *Conn
}

// NewSwapEventStore creates a new SwapEventStore.
func NewSwapEventStore(conn *Conn) *SwapEventStore {
	return &SwapEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*SwapEventStore)(nil)

// Insert adds a single swap event.
func (s *SwapEventStore) Insert(ctx context.Context, e *domain.Event) error {
	return s.InsertBulk(ctx, []*domain.Event{e})
}

// InsertBulk adds multiple swap events. Fails entire batch on duplicate id.
func (s *SwapEventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if err := validateSwap(e); err != nil {
			return err
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, e := range events {
		exists, err := s.exists(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_events (
			id, block_number, tx_index, log_index, seq, timestamp,
			tx_hash, pool, sender, recipient, amount, price_before, price_after
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.ID, e.BlockNumber, uint32(e.TxIndex), uint32(e.LogIndex), uint32(e.Seq), e.Timestamp,
			e.TxHash, e.Contract, e.Sender, e.Recipient,
			e.Value.String(), e.PriceBefore.String(), e.PriceAfter.String(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAddress retrieves swaps in which addr is pool, sender or recipient
// within [fromBlock, toBlock], in canonical order.
func (s *SwapEventStore) GetByAddress(ctx context.Context, addr string, fromBlock, toBlock uint64) ([]*domain.Event, error) {
	query := `
		SELECT id, block_number, tx_index, log_index, seq, timestamp,
			tx_hash, pool, sender, recipient, amount, price_before, price_after
		FROM swap_events
		WHERE (? = '' OR pool = ? OR sender = ? OR recipient = ?)
			AND block_number >= ?
			AND (? = 0 OR block_number <= ?)
		ORDER BY block_number ASC, tx_index ASC, log_index ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, addr, addr, addr, addr, fromBlock, toBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("query swaps by address: %w", err)
	}
	defer rows.Close()

	return scanSwapEvents(rows)
}

// exists checks if a swap with the given id exists.
func (s *SwapEventStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM swap_events WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func validateSwap(e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	if e.Kind != domain.EventKindSwap {
		return fmt.Errorf("%w: clickhouse swap store does not hold %s events", storage.ErrUnsupportedKind, e.Kind)
	}
	if e.PriceBefore == nil || e.PriceAfter == nil {
		return fmt.Errorf("%w: swap %s has no prices", storage.ErrInvalidInput, e.ID)
	}
	return nil
}

// scanSwapEvents scans multiple rows into a slice of swap events.
func scanSwapEvents(rows chRows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e                      domain.Event
			txIndex, logIndex, seq uint32
			amount, before, after  string
		)
		err := rows.Scan(
			&e.ID, &e.BlockNumber, &txIndex, &logIndex, &seq, &e.Timestamp,
			&e.TxHash, &e.Contract, &e.Sender, &e.Recipient,
			&amount, &before, &after,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}

		e.Kind = domain.EventKindSwap
		e.TxIndex = int(txIndex)
		e.LogIndex = int(logIndex)
		e.Seq = int(seq)

		if e.Value, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse swap amount %q: %w", amount, err)
		}
		pb, err := decimal.NewFromString(before)
		if err != nil {
			return nil, fmt.Errorf("parse price_before %q: %w", before, err)
		}
		pa, err := decimal.NewFromString(after)
		if err != nil {
			return nil, fmt.Errorf("parse price_after %q: %w", after, err)
		}
		e.PriceBefore = &pb
		e.PriceAfter = &pa

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return events, nil
}
