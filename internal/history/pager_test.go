package history

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/synthetics-engine/internal/subgraph"
)

func claimPage(n int) []subgraph.RawClaimAction {
	out := make([]subgraph.RawClaimAction, n)
	for i := range out {
		out[i] = rawClaim(strconv.Itoa(i), "ClaimFunding", []string{ethMarket}, []string{usdcAddr}, []string{"1000000"})
	}
	return out
}

func newClaimHistory(t *testing.T, src *fakeIndexer, fetcher *Fetcher[subgraph.RawClaimAction], f Filters) *ClaimHistory {
	t.Helper()
	h, err := NewClaimHistory(42161, account, src, fetcher, f)
	require.NoError(t, err)
	return h
}

func TestClaimHistory_PagesAreNotRefetched(t *testing.T) {
	ctx := context.Background()
	src := &fakeIndexer{claims: claimPage(3)}
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))
	filters := Filters{PageSize: 2, EventNames: []string{"ClaimFunding", "ClaimPriceImpact"}}

	h := newClaimHistory(t, src, fetcher, filters)
	require.NoError(t, h.AdvancePage(ctx))
	require.NoError(t, h.AdvancePage(ctx))
	assert.Equal(t, 2, src.callCount())
	assert.Equal(t, 0, src.queries[0].Skip)
	assert.Equal(t, 2, src.queries[1].Skip)
	assert.Equal(t, 2, h.PageIndex())
	assert.False(t, h.HasMore())
	assert.Len(t, h.Actions(testSnapshot(t)), 3)

	// Same filters in a different order hit the cache.
	again := newClaimHistory(t, src, fetcher, Filters{PageSize: 2, EventNames: []string{"ClaimPriceImpact", "ClaimFunding"}})
	require.NoError(t, again.LoadPages(ctx, 5))
	assert.Equal(t, 2, src.callCount())
	assert.Len(t, again.Actions(testSnapshot(t)), 3)
}

func TestClaimHistory_StopsAfterShortPage(t *testing.T) {
	ctx := context.Background()
	src := &fakeIndexer{claims: claimPage(4)}
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))

	h := newClaimHistory(t, src, fetcher, Filters{PageSize: 2})
	require.NoError(t, h.LoadPages(ctx, 10))

	// Two full pages, then an empty one.
	assert.Equal(t, 3, src.callCount())
	assert.Equal(t, 3, h.PageIndex())
	assert.False(t, h.HasMore())

	require.NoError(t, h.AdvancePage(ctx))
	assert.Equal(t, 3, src.callCount())
}

func TestClaimHistory_SetFiltersDiscardsStaleLoad(t *testing.T) {
	ctx := context.Background()
	src := &fakeIndexer{
		claims:  claimPage(2),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))
	h := newClaimHistory(t, src, fetcher, Filters{PageSize: 2})

	done := make(chan error)
	go func() { done <- h.AdvancePage(ctx) }()

	<-src.entered
	h.SetFilters(Filters{PageSize: 2, MarketAddresses: []string{ethMarket}})
	close(src.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, h.PageIndex())
	assert.True(t, h.HasMore())
	assert.Equal(t, []string{ethMarket}, h.Filters().MarketAddresses)
	assert.Empty(t, h.Actions(testSnapshot(t)))
}

func TestClaimHistory_LoadErrorKeepsPage(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("indexer down")
	src := &fakeIndexer{claims: claimPage(2), err: errDown}
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))
	h := newClaimHistory(t, src, fetcher, Filters{PageSize: 2})

	assert.ErrorIs(t, h.AdvancePage(ctx), errDown)
	assert.Equal(t, 0, h.PageIndex())

	src.err = nil
	require.NoError(t, h.AdvancePage(ctx))
	assert.Equal(t, 1, h.PageIndex())
	assert.Equal(t, 2, src.callCount())
}

func TestClaimHistory_RejectsInvalidAccount(t *testing.T) {
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))
	_, err := NewClaimHistory(42161, "not-an-address", &fakeIndexer{}, fetcher, Filters{})
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestClaimHistory_NilSnapshot(t *testing.T) {
	src := &fakeIndexer{claims: claimPage(1)}
	fetcher := NewFetcher[subgraph.RawClaimAction](ScopeClaims, NewMemoryPageCache(16, 0))
	h := newClaimHistory(t, src, fetcher, Filters{})
	require.NoError(t, h.AdvancePage(context.Background()))
	assert.Nil(t, h.Actions(nil))
}

func TestTradeHistory_Rows(t *testing.T) {
	increase := rawTrade("1", 2, "OrderExecuted", usdcAddr)
	increase.MarketAddress = strp(ethMarket)
	increase.IsLong = boolp(true)
	increase.SizeDeltaUsd = strp("1000000000000000000000000000000000")
	increase.ExecutionPrice = strp("2000000000000000000000000000000000")
	unknown := rawTrade("2", 2, "OrderSomething", usdcAddr)
	unknown.MarketAddress = strp(ethMarket)

	src := &fakeIndexer{trades: []subgraph.RawTradeAction{increase, unknown}}
	fetcher := NewFetcher[subgraph.RawTradeAction](ScopeTrades, NewMemoryPageCache(16, 0))
	h, err := NewTradeHistory(42161, account, src, fetcher, Filters{})
	require.NoError(t, err)
	require.NoError(t, h.AdvancePage(context.Background()))

	assert.Len(t, h.Actions(testSnapshot(t)), 2)
	rows := h.Rows(testSnapshot(t), "https://arbiscan.io/", PositionLimits{})
	require.Len(t, rows, 1)
	assert.Equal(t, "Increase Long ETH +$1,000.00, Price: $2,000.00", rows[0].Message.String())
	assert.Equal(t, "https://arbiscan.io/tx/0x1", rows[0].TxURL)
}
