package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

func TestReportStore_SaveGetList(t *testing.T) {
	pool := newTestPool(t)

	store := NewReportStore(pool)
	ctx := context.Background()

	high := domain.SeverityHigh
	older := &domain.Report{
		ID:          "r-old",
		Entity:      alice,
		ToBlock:     10,
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Findings: []domain.Finding{{
			ID:       "f1",
			Kind:     "zscore",
			Severity: domain.SeverityHigh,
			Evidence: domain.Evidence{Key: "e1", Metrics: map[string]float64{"z": 4.2}},
		}},
		Decision: domain.Decision{Verdict: domain.VerdictSuspectedFraud, MaxSeverity: &high},
	}
	newer := &domain.Report{
		ID:          "r-new",
		Entity:      alice,
		GeneratedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Decision:    domain.Decision{Verdict: domain.VerdictClear},
	}

	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))
	assert.ErrorIs(t, store.Save(ctx, older), storage.ErrDuplicateKey)

	got, err := store.Get(ctx, "r-old")
	require.NoError(t, err)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, domain.SeverityHigh, got.Findings[0].Severity)
	assert.Equal(t, 4.2, got.Findings[0].Evidence.Metrics["z"])
	require.NotNil(t, got.Decision.MaxSeverity)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := store.ListByEntity(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r-new", list[0].ID)
}
