package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
// The report body is kept as a JSONB document.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Save stores a report. Returns ErrDuplicateKey if the id exists.
func (s *ReportStore) Save(ctx context.Context, r *domain.Report) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, entity, from_block, to_block, verdict, finding_count, generated_at, body
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.Entity,
		int64(r.FromBlock),
		int64(r.ToBlock),
		string(r.Decision.Verdict),
		len(r.Findings),
		r.GeneratedAt,
		body,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get returns a report by id.
func (s *ReportStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM reports WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	return decodeReport(body)
}

// ListByEntity returns up to limit reports for entity, newest first.
func (s *ReportStore) ListByEntity(ctx context.Context, entity string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT body
		FROM reports
		WHERE entity = $1
		ORDER BY generated_at DESC, id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports by entity: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		r, err := decodeReport(body)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	return reports, nil
}

func decodeReport(body []byte) (*domain.Report, error) {
	var r domain.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
