package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage/memory"
	"terminal-collector/internal/terminal"
)

func positionsResult(ps ...domain.Position) terminal.PositionsResult {
	return terminal.PositionsFromRows(append([]domain.Position{}, ps...))
}

func tickets(t *testing.T, store *memory.PositionStore, account int64) []int64 {
	t.Helper()
	got, err := store.GetByAccount(context.Background(), account)
	require.NoError(t, err)
	out := make([]int64, 0, len(got))
	for _, p := range got {
		out = append(out, p.Ticket)
	}
	return out
}

func TestPositionReplicator_ReplacesAccountSet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	n, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0), position(11, 1, 1))}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = rep.Replace(ctx, &fakeSession{positions: positionsResult(position(12, 1, 5))}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{12}, tickets(t, store, 1))

	got, err := store.GetByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DealTypeSell, got[0].Type, "non-buy codes are sells")
	assert.Equal(t, testNow, got[0].UpdatedAt)
}

func TestPositionReplicator_AccountIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	_, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(20, 1, 0), position(21, 1, 0))}, 2)
	require.NoError(t, err)
	_, err = rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0))}, 1)
	require.NoError(t, err)
	_, err = rep.Replace(ctx, &fakeSession{positions: positionsResult()}, 1)
	require.NoError(t, err)

	assert.Empty(t, tickets(t, store, 1))
	assert.Equal(t, []int64{20, 21}, tickets(t, store, 2))
}

func TestPositionReplicator_EmptyClearsStaleRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	_, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0))}, 1)
	require.NoError(t, err)

	n, err := rep.Replace(ctx, &fakeSession{positions: terminal.PositionsResult{Status: terminal.StatusEmpty}}, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, tickets(t, store, 1))
}

func TestPositionReplicator_UnavailableKeepsRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	_, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0))}, 1)
	require.NoError(t, err)

	n, err := rep.Replace(ctx, &fakeSession{positions: terminal.PositionsFromRows(nil)}, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int64{10}, tickets(t, store, 1))
}

func TestPositionReplicator_FailedKeepsRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	_, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0))}, 1)
	require.NoError(t, err)

	_, err = rep.Replace(ctx, &fakeSession{positions: terminal.PositionsResult{Status: terminal.StatusFailed, Err: errInjected}}, 1)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []int64{10}, tickets(t, store, 1))
}

func TestPositionReplicator_StoreRejectsBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	rep := NewPositionReplicator(store, testDeps())

	_, err := rep.Replace(ctx, &fakeSession{positions: positionsResult(position(10, 1, 0))}, 1)
	require.NoError(t, err)

	_, err = rep.Replace(ctx, &fakeSession{positions: positionsResult(position(11, 1, 0), position(11, 1, 0))}, 1)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, []int64{10}, tickets(t, store, 1), "rejected batch leaves the previous set")
}
