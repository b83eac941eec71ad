package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

const (
	pool  = "0x1111111111111111111111111111111111111111"
	alice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newSwap(id string, block uint64, logIndex int, sender string, before, after string) *domain.Event {
	pb := decimal.RequireFromString(before)
	pa := decimal.RequireFromString(after)
	return &domain.Event{
		ID:          id,
		Kind:        domain.EventKindSwap,
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      "0xhash",
		Contract:    pool,
		Sender:      sender,
		Value:       decimal.RequireFromString("12.5"),
		PriceBefore: &pb,
		PriceAfter:  &pa,
	}
}

func TestSwapEventStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(conn)
	ctx := context.Background()

	first := newSwap("s1", 10, 1, alice, "1.00", "1.02")
	first.Timestamp = ptr(int64(1700000000))
	second := newSwap("s2", 10, 0, bob, "1.02", "0.99")
	third := newSwap("s3", 12, 0, alice, "0.99", "1.00")

	require.NoError(t, store.InsertBulk(ctx, []*domain.Event{first, second, third}))

	got, err := store.GetByAddress(ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s3", got[1].ID)
	require.NotNil(t, got[0].Timestamp)
	assert.Equal(t, int64(1700000000), *got[0].Timestamp)
	assert.Nil(t, got[1].Timestamp)
	assert.True(t, got[0].PriceAfter.Equal(decimal.RequireFromString("1.02")))
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, domain.EventKindSwap, got[0].Kind)

	byPool, err := store.GetByAddress(ctx, pool, 10, 10)
	require.NoError(t, err)
	require.Len(t, byPool, 2)
	assert.Equal(t, "s2", byPool[0].ID, "log index 0 sorts first within the block")
}

func TestSwapEventStore_Duplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(conn)
	ctx := context.Background()

	swap := newSwap("dup", 1, 0, alice, "1", "1")
	require.NoError(t, store.Insert(ctx, swap))
	assert.ErrorIs(t, store.Insert(ctx, swap), storage.ErrDuplicateKey)

	other := newSwap("fresh", 2, 0, alice, "1", "1")
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.Event{other, other}), storage.ErrDuplicateKey)
}

func TestSwapEventStore_RejectsNonSwaps(t *testing.T) {
	store := NewSwapEventStore(nil)
	err := store.Insert(context.Background(), &domain.Event{ID: "t", Kind: domain.EventKindTransfer})
	assert.ErrorIs(t, err, storage.ErrUnsupportedKind)

	noPrice := &domain.Event{ID: "s", Kind: domain.EventKindSwap}
	assert.ErrorIs(t, store.Insert(context.Background(), noPrice), storage.ErrInvalidInput)
}
