package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// CaseStore implements storage.CaseStore using PostgreSQL.
type CaseStore struct {
	pool *Pool
}

// NewCaseStore creates a new CaseStore.
func NewCaseStore(pool *Pool) *CaseStore {
	return &CaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CaseStore = (*CaseStore)(nil)

// Create stores a case header. Members passed in c are ignored.
func (s *CaseStore) Create(ctx context.Context, c *domain.Case) error {
	if c == nil || c.ID == "" || c.Name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO cases (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// Get returns a case with its members sorted by address and tx hash.
func (s *CaseStore) Get(ctx context.Context, id string) (*domain.Case, error) {
	var c domain.Case
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM cases WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}

	c.Addresses, err = s.addresses(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Transactions, err = s.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CaseStore) addresses(ctx context.Context, id string) ([]domain.CaseAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, risk_score, entity, tags
		FROM case_addresses
		WHERE case_id = $1
		ORDER BY address ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list case addresses: %w", err)
	}
	defer rows.Close()

	var out []domain.CaseAddress
	for rows.Next() {
		var a domain.CaseAddress
		if err := rows.Scan(&a.Address, &a.RiskScore, &a.Entity, &a.Tags); err != nil {
			return nil, fmt.Errorf("scan case address row: %w", err)
		}
		if len(a.Tags) == 0 {
			a.Tags = nil
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case address rows: %w", err)
	}
	return out, nil
}

func (s *CaseStore) transactions(ctx context.Context, id string) ([]domain.CaseTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, block_number, asset, amount::text, address, timestamp
		FROM case_transactions
		WHERE case_id = $1
		ORDER BY tx_hash ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list case transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.CaseTransaction
	for rows.Next() {
		var (
			tx     domain.CaseTransaction
			block  *int64
			amount string
		)
		if err := rows.Scan(&tx.TxHash, &block, &tx.Asset, &amount, &tx.Address, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan case transaction row: %w", err)
		}
		if block != nil {
			b := uint64(*block)
			tx.BlockNumber = &b
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse case transaction amount %q: %w", amount, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case transaction rows: %w", err)
	}
	return out, nil
}

// List returns case headers, newest first.
func (s *CaseStore) List(ctx context.Context) ([]*domain.Case, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM cases
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := []*domain.Case{}
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan case row: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case rows: %w", err)
	}
	return out, nil
}

// AddAddresses upserts addresses and touches the case in one transaction.
func (s *CaseStore) AddAddresses(ctx context.Context, id string, addrs []domain.CaseAddress, at time.Time) (int, error) {
	for _, a := range addrs {
		if a.Address == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO case_addresses (case_id, address, risk_score, entity, tags)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id, address) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			entity = EXCLUDED.entity,
			tags = EXCLUDED.tags
	`

	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := touchCase(ctx, tx, id, at); err != nil {
			return err
		}
		for _, a := range addrs {
			tags := a.Tags
			if tags == nil {
				tags = []string{}
			}
			if _, err := tx.Exec(ctx, query, id, a.Address, a.RiskScore, a.Entity, tags); err != nil {
				return fmt.Errorf("upsert case address: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(addrs), nil
}

// AddTransactions upserts transactions and touches the case in one transaction.
func (s *CaseStore) AddTransactions(ctx context.Context, id string, txs []domain.CaseTransaction, at time.Time) (int, error) {
	for _, t := range txs {
		if t.TxHash == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO case_transactions (case_id, tx_hash, block_number, asset, amount, address, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (case_id, tx_hash) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			asset = EXCLUDED.asset,
			amount = EXCLUDED.amount,
			address = EXCLUDED.address,
			timestamp = EXCLUDED.timestamp
	`

	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := touchCase(ctx, tx, id, at); err != nil {
			return err
		}
		for _, t := range txs {
			var block *int64
			if t.BlockNumber != nil {
				b := int64(*t.BlockNumber)
				block = &b
			}
			_, err := tx.Exec(ctx, query, id, t.TxHash, block, t.Asset, t.Amount.String(), t.Address, t.Timestamp)
			if err != nil {
				return fmt.Errorf("upsert case transaction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(txs), nil
}

// touchCase sets updated_at and reports ErrNotFound for a missing case.
func touchCase(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE cases SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
