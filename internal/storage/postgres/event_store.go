package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// EventStore implements storage.EventStore for transfer and log events using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO events (
		id, kind, block_number, tx_index, log_index, seq, timestamp,
		tx_hash, contract, sender, recipient, value
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric)
`

// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if err := validateEvent(e); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, insertEventQuery, eventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := validateEvent(e); err != nil {
			return err
		}
	}

	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		for _, e := range events {
			if _, err := tx.Exec(ctx, insertEventQuery, eventArgs(e)...); err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert event in bulk: %w", err)
			}
		}
		return nil
	})
}

// GetByAddress retrieves events involving addr within [fromBlock, toBlock].
func (s *EventStore) GetByAddress(ctx context.Context, addr string, fromBlock, toBlock uint64) ([]*domain.Event, error) {
	query := `
		SELECT id, kind, block_number, tx_index, log_index, seq, timestamp,
			tx_hash, contract, sender, recipient, value::text
		FROM events
		WHERE ($1 = '' OR sender = $1 OR recipient = $1 OR contract = $1)
			AND block_number >= $2
			AND ($3 = 0 OR block_number <= $3)
		ORDER BY block_number ASC, tx_index ASC, log_index ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, addr, int64(fromBlock), int64(toBlock))
	if err != nil {
		return nil, fmt.Errorf("get events by address: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func validateEvent(e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	if e.Kind != domain.EventKindTransfer && e.Kind != domain.EventKindLog {
		return fmt.Errorf("%w: postgres event store does not hold %s events", storage.ErrUnsupportedKind, e.Kind)
	}
	return nil
}

func eventArgs(e *domain.Event) []any {
	return []any{
		e.ID,
		string(e.Kind),
		int64(e.BlockNumber),
		e.TxIndex,
		e.LogIndex,
		e.Seq,
		e.Timestamp,
		e.TxHash,
		e.Contract,
		e.Sender,
		e.Recipient,
		e.Value.String(),
	}
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e     domain.Event
			kind  string
			block int64
			value string
		)

		err := rows.Scan(
			&e.ID,
			&kind,
			&block,
			&e.TxIndex,
			&e.LogIndex,
			&e.Seq,
			&e.Timestamp,
			&e.TxHash,
			&e.Contract,
			&e.Sender,
			&e.Recipient,
			&value,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)
		e.BlockNumber = uint64(block)
		e.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse event value %q: %w", value, err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
