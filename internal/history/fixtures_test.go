package history

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

const (
	account   = "0x9f7198eb1b9Ccc0Eb7A07eD228d8FbC12963ea33"
	wethAddr  = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
	usdcAddr  = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	arbAddr   = "0x912CE59144191C1204E64559FE8253a0e49E6548"
	ethMarket = "0x70d95587d40A2caf56bd97485aB3Eec10Bee6336"
	arbMarket = "0xC25cEf6061Cf5dE5eb761b50E4743c1F5D7E5407"
	// Not part of the test snapshot.
	unknownMarket = "0x47c031236e19d024b42f8AE6780E44A573170703"
)

func testSnapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	tokens := []model.Token{
		{Address: wethAddr, Symbol: "ETH", Decimals: 18,
			Prices: model.TokenPrices{MinPrice: fixedpoint.USD(2000), MaxPrice: fixedpoint.USD(2000)}},
		{Address: usdcAddr, Symbol: "USDC", Decimals: 6, IsStable: true,
			Prices: model.TokenPrices{MinPrice: fixedpoint.USD(1), MaxPrice: fixedpoint.USD(1)}},
		{Address: arbAddr, Symbol: "ARB", Decimals: 18,
			Prices: model.TokenPrices{MinPrice: fixedpoint.USD(1), MaxPrice: fixedpoint.USD(1)}},
	}
	markets := []model.Market{
		{MarketTokenAddress: ethMarket, Name: "ETH/USD", IndexTokenAddress: wethAddr,
			LongTokenAddress: wethAddr, ShortTokenAddress: usdcAddr, MaxLeverage: big.NewInt(1_000_000)},
		{MarketTokenAddress: arbMarket, Name: "ARB/USD", IndexTokenAddress: arbAddr,
			LongTokenAddress: arbAddr, ShortTokenAddress: usdcAddr},
	}
	return model.NewSnapshot(42161, tokens, markets)
}

// fakeIndexer serves canned pages and counts queries per page.
type fakeIndexer struct {
	mu      sync.Mutex
	calls   int
	queries []subgraph.Query
	claims  []subgraph.RawClaimAction
	trades  []subgraph.RawTradeAction
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeIndexer) record(q subgraph.Query) error {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, q)
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return err
}

func (f *fakeIndexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeIndexer) ClaimActions(_ context.Context, q subgraph.Query) ([]subgraph.RawClaimAction, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	return window(f.claims, q), nil
}

func (f *fakeIndexer) TradeActions(_ context.Context, q subgraph.Query) ([]subgraph.RawTradeAction, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	return window(f.trades, q), nil
}

func window[T any](all []T, q subgraph.Query) []T {
	if q.Skip >= len(all) {
		return []T{}
	}
	end := q.Skip + q.First
	if end > len(all) {
		end = len(all)
	}
	return all[q.Skip:end]
}

func rawClaim(id, event string, markets, tokens, amounts []string) subgraph.RawClaimAction {
	prices := make([]string, len(tokens))
	for i := range prices {
		prices[i] = fixedpoint.USD(1).String()
	}
	return subgraph.RawClaimAction{
		ID:              id,
		EventName:       event,
		Account:         strings.ToLower(account),
		MarketAddresses: lower(markets),
		TokenAddresses:  lower(tokens),
		Amounts:         amounts,
		TokenPrices:     prices,
		Transaction:     subgraph.RawTransaction{Timestamp: 1700000000, Hash: "0x" + id},
	}
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func amount(s string) *big.Int { return fixedpoint.MustParse(s) }

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }
