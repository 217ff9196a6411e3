package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

func newPosition(ticket, account int64) *domain.OpenPosition {
	return &domain.OpenPosition{
		Ticket:       ticket,
		AccountID:    account,
		Symbol:       "XAUUSD",
		MagicNumber:  77,
		Type:         domain.DealTypeBuy,
		Volume:       0.2,
		OpenPrice:    2300.5,
		CurrentPrice: 2310.1,
		SL:           2290,
		TP:           2350,
		Profit:       19.2,
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestPositionStore_ReplaceForAccount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(10, 1), newPosition(11, 1)}))
	require.NoError(t, store.ReplaceForAccount(ctx, 2, []*domain.OpenPosition{newPosition(20, 2)}))
	require.NoError(t, store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(12, 1)}))

	got, err := store.GetByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].Ticket)
	assert.InDelta(t, 2350.0, got[0].TP, 0.0001)

	other, err := store.GetByAccount(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(20), other[0].Ticket)

	require.NoError(t, store.ReplaceForAccount(ctx, 1, nil))
	got, err = store.GetByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPositionStore_ReplaceRejectsDuplicateTickets(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(10, 1)}))

	err := store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(11, 1), newPosition(11, 1)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].Ticket)
}

func TestPositionStore_TicketHeldByOtherAccount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.ReplaceForAccount(ctx, 2, []*domain.OpenPosition{newPosition(10, 2)}))
	require.NoError(t, store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(5, 1)}))

	err := store.ReplaceForAccount(ctx, 1, []*domain.OpenPosition{newPosition(6, 1), newPosition(10, 1)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	other, err := store.GetByAccount(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(10), other[0].Ticket)
	assert.Equal(t, int64(2), other[0].AccountID)

	own, err := store.GetByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, int64(5), own[0].Ticket)
}
