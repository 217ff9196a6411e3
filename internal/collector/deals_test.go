package collector

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/storage/memory"
	"terminal-collector/internal/terminal"
)

func dealsResult(deals ...domain.Deal) terminal.DealsResult {
	return terminal.DealsFromRows(append([]domain.Deal{}, deals...))
}

func TestDealSyncer_ScenarioThreeDealsTwoStrategies(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	deps := testDeps()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, deps)

	base := testNow.Add(-time.Hour)
	session := &fakeSession{account: 1001, deals: dealsResult(
		deal(5001, 77, domain.DealCodeBuy, base),
		deal(5002, 77, domain.DealCodeSell, base.Add(time.Minute)),
		deal(5003, 88, domain.DealCodeBuy, base.Add(2*time.Minute)),
	)}

	inserted, err := syncer.Sync(ctx, session, 1001)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	n, err := stores.Deals.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	regs, err := stores.Strategies.GetByAccount(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "EA_77", regs[0].Name)
	assert.Equal(t, "Auto-discovered on 1001", *regs[0].Description)
	assert.Equal(t, "EA_88", regs[1].Name)

	assert.Equal(t, 3.0, testutil.ToFloat64(deps.Metrics.DealsInserted))
	assert.Equal(t, 2.0, testutil.ToFloat64(deps.Metrics.StrategiesRegistered))

	// re-sync over the same window
	inserted, err = syncer.Sync(ctx, session, 1001)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	n, err = stores.Deals.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	regs, err = stores.Strategies.GetByAccount(ctx, 1001)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestDealSyncer_MapsDealRow(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	at := testNow.Add(-time.Minute)
	d := deal(42, 9, 6, at)
	d.Comment = "dividend"
	_, err := syncer.Sync(ctx, &fakeSession{deals: dealsResult(d)}, 7)
	require.NoError(t, err)

	got, err := stores.Deals.GetByAccount(ctx, 7, at, at)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.DealTypeUnknown, got[0].Type)
	assert.Equal(t, int64(7), got[0].AccountID)
	assert.Equal(t, int64(9), got[0].MagicNumber)
	assert.InDelta(t, 1.0850, got[0].Price, 1e-9)
	assert.True(t, got[0].Timestamp.Equal(at))
	assert.Equal(t, "dividend", got[0].Comment)
}

func TestDealSyncer_OverlappingWindowsNoDuplicates(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	base := testNow.Add(-2 * time.Hour)
	first := &fakeSession{deals: dealsResult(
		deal(1, 1, 0, base),
		deal(2, 1, 1, base.Add(time.Minute)),
	)}
	inserted, err := syncer.Sync(ctx, first, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// the terminal returns a superset that overlaps the stored tail, plus a duplicate row
	second := &fakeSession{deals: dealsResult(
		deal(2, 1, 1, base.Add(time.Minute)),
		deal(3, 1, 0, base.Add(2*time.Minute)),
		deal(3, 1, 0, base.Add(2*time.Minute)),
	)}
	inserted, err = syncer.Sync(ctx, second, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	n, err := stores.Deals.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// the second fetch starts at the newest stored deal
	require.Len(t, second.dealCalls, 1)
	assert.True(t, second.dealCalls[0][0].Equal(base.Add(time.Minute)))
	assert.True(t, second.dealCalls[0][1].Equal(testNow))
}

func TestDealSyncer_FirstSyncUsesLookback(t *testing.T) {
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	session := &fakeSession{deals: terminal.DealsResult{Status: terminal.StatusEmpty}}
	inserted, err := syncer.Sync(context.Background(), session, 1)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	require.Len(t, session.dealCalls, 1)
	assert.True(t, session.dealCalls[0][0].Equal(testNow.Add(-DefaultLookback)))
}

func TestDealSyncer_RegistersOncePerMagicAndAccount(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	base := testNow.Add(-time.Hour)
	_, err := syncer.Sync(ctx, &fakeSession{deals: dealsResult(deal(1, 77, 0, base))}, 1)
	require.NoError(t, err)

	// same magic later on the same account, and on a second account
	_, err = syncer.Sync(ctx, &fakeSession{deals: dealsResult(deal(2, 77, 0, base.Add(time.Minute)))}, 1)
	require.NoError(t, err)
	_, err = syncer.Sync(ctx, &fakeSession{deals: dealsResult(deal(3, 77, 0, base.Add(time.Minute)))}, 2)
	require.NoError(t, err)

	regs1, err := stores.Strategies.GetByAccount(ctx, 1)
	require.NoError(t, err)
	regs2, err := stores.Strategies.GetByAccount(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, regs1, 1)
	require.Len(t, regs2, 1)
	assert.Equal(t, "Auto-discovered on 2", *regs2[0].Description)
}

func TestDealSyncer_KeepsExistingRegistration(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	renamed := domain.NewDiscoveredStrategy(77, 1, testNow.Add(-48*time.Hour))
	renamed.Name = "Grid Scalper"
	_, _, err := stores.Deals.CommitBatch(ctx, &storage.DealBatch{Strategies: []*domain.StrategyRegistration{renamed}})
	require.NoError(t, err)

	_, err = syncer.Sync(ctx, &fakeSession{deals: dealsResult(deal(1, 77, 0, testNow.Add(-time.Minute)))}, 1)
	require.NoError(t, err)

	regs, err := stores.Strategies.GetByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "Grid Scalper", regs[0].Name)
}

func TestDealSyncer_UnavailableIsNoop(t *testing.T) {
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	inserted, err := syncer.Sync(context.Background(), &fakeSession{deals: terminal.DealsFromRows(nil)}, 1)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestDealSyncer_FailedFetchWritesNothing(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(stores.Deals, stores.Strategies, testDeps())

	session := &fakeSession{deals: terminal.DealsResult{Status: terminal.StatusFailed, Err: errInjected}}
	inserted, err := syncer.Sync(ctx, session, 1)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, errInjected)
	assert.Zero(t, inserted)

	n, err := stores.Deals.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDealSyncer_CommitFailureRollsBackBatch(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	syncer := NewDealSyncer(failingDealStore{stores.Deals}, stores.Strategies, testDeps())

	session := &fakeSession{deals: dealsResult(
		deal(1, 77, 0, testNow.Add(-time.Minute)),
		deal(2, 88, 0, testNow.Add(-time.Minute)),
	)}
	inserted, err := syncer.Sync(ctx, session, 1)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.Zero(t, inserted)

	n, err := stores.Deals.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	regs, err := stores.Strategies.GetByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, regs)
}
