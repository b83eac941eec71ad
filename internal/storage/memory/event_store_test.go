package memory

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
	alice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	carol = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func newEvent(block uint64, logIndex int, from, to string) *domain.Event {
	return &domain.Event{
		ID:          domain.EventID("0xtx", block, 0, logIndex) + ":" + decimal.NewFromInt(int64(block)).String(),
		Kind:        domain.EventKindTransfer,
		BlockNumber: block,
		LogIndex:    logIndex,
		Sender:      from,
		Recipient:   to,
		Value:       decimal.NewFromInt(10),
	}
}

func TestEventStore_InsertAndGet(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e := newEvent(10, 0, alice, bob)
	require.NoError(t, store.Insert(ctx, e))

	err := store.Insert(ctx, e)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByAddress(ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].ID)

	// Returned events are copies.
	got[0].Sender = carol
	again, err := store.GetByAddress(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, alice, again[0].Sender)
}

func TestEventStore_InsertInvalid(t *testing.T) {
	store := NewEventStore()
	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.Event{}), storage.ErrInvalidInput)
}

func TestEventStore_InsertBulkAtomic(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	first := newEvent(1, 0, alice, bob)
	require.NoError(t, store.Insert(ctx, first))

	batch := []*domain.Event{newEvent(2, 0, alice, bob), first}
	assert.ErrorIs(t, store.InsertBulk(ctx, batch), storage.ErrDuplicateKey)

	got, err := store.GetByAddress(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed batch must not insert anything")

	dup := newEvent(3, 0, alice, bob)
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.Event{dup, dup}), storage.ErrDuplicateKey)
}

func TestEventStore_GetByAddressRangeAndOrder(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Event{
		newEvent(30, 0, bob, alice),
		newEvent(10, 2, alice, bob),
		newEvent(10, 1, alice, carol),
		newEvent(20, 0, bob, carol),
	}))

	got, err := store.GetByAddress(ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(10), got[0].BlockNumber)
	assert.Equal(t, 1, got[0].LogIndex)
	assert.Equal(t, 2, got[1].LogIndex)
	assert.Equal(t, uint64(30), got[2].BlockNumber)

	ranged, err := store.GetByAddress(ctx, alice, 11, 30)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, uint64(30), ranged[0].BlockNumber)

	upTo, err := store.GetByAddress(ctx, "", 0, 20)
	require.NoError(t, err)
	assert.Len(t, upTo, 3)
}

func TestRouter_DispatchesByKind(t *testing.T) {
	transfers := NewEventStore()
	swaps := NewEventStore()
	ctx := context.Background()

	router, err := storage.NewRouter(map[domain.EventKind]storage.EventStore{
		domain.EventKindTransfer: transfers,
		domain.EventKindLog:      transfers,
		domain.EventKindSwap:     swaps,
	})
	require.NoError(t, err)

	swap := newEvent(5, 0, alice, bob)
	swap.Kind = domain.EventKindSwap
	transfer := newEvent(7, 0, bob, alice)
	logEv := newEvent(3, 0, alice, "")
	logEv.Kind = domain.EventKindLog

	require.NoError(t, router.InsertBulk(ctx, []*domain.Event{swap, transfer, logEv}))

	onlySwaps, err := swaps.GetByAddress(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, onlySwaps, 1)

	merged, err := router.GetByAddress(ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, []uint64{3, 5, 7}, []uint64{merged[0].BlockNumber, merged[1].BlockNumber, merged[2].BlockNumber})

	assert.ErrorIs(t, router.Insert(ctx, &domain.Event{ID: "x", Kind: "mint"}), storage.ErrUnsupportedKind)
}

func TestNewRouter_RequiresEveryKind(t *testing.T) {
	_, err := storage.NewRouter(map[domain.EventKind]storage.EventStore{
		domain.EventKindTransfer: NewEventStore(),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
