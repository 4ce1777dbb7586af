package history

import (
	"context"
	"sync"

	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

// ClaimSource runs claimActions queries. *subgraph.Client implements it.
type ClaimSource interface {
	ClaimActions(ctx context.Context, q subgraph.Query) ([]subgraph.RawClaimAction, error)
}

// TradeSource runs tradeActions queries. *subgraph.Client implements it.
type TradeSource interface {
	TradeActions(ctx context.Context, q subgraph.Query) ([]subgraph.RawTradeAction, error)
}

// pager accumulates consecutive pages of one account's history. Page N+1
// is only requested after page N has been appended.
type pager[T any] struct {
	chainID int64
	scope   Scope
	account string
	fetcher *Fetcher[T]
	query   func(ctx context.Context, q subgraph.Query) ([]T, error)

	mu         sync.Mutex
	filters    Filters
	generation uint64
	pages      [][]T
	exhausted  bool
}

func newPager[T any](chainID int64, scope Scope, account string, fetcher *Fetcher[T], f Filters,
	query func(context.Context, subgraph.Query) ([]T, error)) (*pager[T], error) {
	if !model.IsAddress(account) {
		return nil, ErrInvalidAccount
	}
	return &pager[T]{
		chainID: chainID,
		scope:   scope,
		account: account,
		fetcher: fetcher,
		query:   query,
		filters: f,
	}, nil
}

// PageIndex is the index of the next page to load, which is also the
// number of pages loaded so far.
func (p *pager[T]) PageIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// HasMore reports whether the last page came back full.
func (p *pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exhausted
}

// Filters returns the current filter set.
func (p *pager[T]) Filters() Filters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters
}

// SetFilters replaces the filter set and drops loaded pages. Loads started
// under the previous filters are discarded when they complete.
func (p *pager[T]) SetFilters(f Filters) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = f
	p.generation++
	p.pages = nil
	p.exhausted = false
}

// AdvancePage loads the next page. It is a no-op once a short page has
// been seen.
func (p *pager[T]) AdvancePage(ctx context.Context) error {
	p.mu.Lock()
	if p.exhausted {
		p.mu.Unlock()
		return nil
	}
	gen, page, filters := p.generation, len(p.pages), p.filters
	p.mu.Unlock()

	key := NewPageKey(p.chainID, p.scope, p.account, page, filters)
	records, err := p.fetcher.Fetch(ctx, key, func(ctx context.Context) ([]T, error) {
		return p.query(ctx, key.Query())
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation || len(p.pages) != page {
		// Filters changed or another caller appended this page first.
		return nil
	}
	if err != nil {
		return err
	}
	p.pages = append(p.pages, records)
	if len(records) < key.PageSize {
		p.exhausted = true
	}
	return nil
}

// LoadPages advances until n pages are loaded or the history runs out. It
// stops early if the filters change while it runs.
func (p *pager[T]) LoadPages(ctx context.Context, n int) error {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	for {
		p.mu.Lock()
		done := p.generation != gen || len(p.pages) >= n || p.exhausted
		p.mu.Unlock()
		if done {
			return nil
		}
		if err := p.AdvancePage(ctx); err != nil {
			return err
		}
	}
}

func (p *pager[T]) records() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []T
	for _, page := range p.pages {
		out = append(out, page...)
	}
	return out
}

// ClaimHistory pages through an account's claim actions.
type ClaimHistory struct {
	*pager[subgraph.RawClaimAction]
}

// NewClaimHistory creates a claim history pager. Nothing is loaded until
// AdvancePage or LoadPages is called.
func NewClaimHistory(chainID int64, account string, src ClaimSource,
	fetcher *Fetcher[subgraph.RawClaimAction], f Filters) (*ClaimHistory, error) {
	p, err := newPager(chainID, ScopeClaims, account, fetcher, f, src.ClaimActions)
	if err != nil {
		return nil, err
	}
	return &ClaimHistory{pager: p}, nil
}

// Actions classifies every loaded record against snap. It returns nil when
// snap is nil, meaning reference data is not loaded yet.
func (h *ClaimHistory) Actions(snap *model.Snapshot) []model.ClaimAction {
	if snap == nil {
		return nil
	}
	return AggregateClaims(h.records(), snap)
}

// TradeHistory pages through an account's trade actions.
type TradeHistory struct {
	*pager[subgraph.RawTradeAction]
}

// NewTradeHistory creates a trade history pager.
func NewTradeHistory(chainID int64, account string, src TradeSource,
	fetcher *Fetcher[subgraph.RawTradeAction], f Filters) (*TradeHistory, error) {
	p, err := newPager(chainID, ScopeTrades, account, fetcher, f, src.TradeActions)
	if err != nil {
		return nil, err
	}
	return &TradeHistory{pager: p}, nil
}

// Actions resolves every loaded record against snap. It returns nil when
// snap is nil.
func (h *TradeHistory) Actions(snap *model.Snapshot) []model.TradeAction {
	if snap == nil {
		return nil
	}
	return AggregateTrades(h.records(), snap)
}

// Rows renders the loaded trade actions, leaving out those with no
// readable description.
func (h *TradeHistory) Rows(snap *model.Snapshot, explorerURL string, limits PositionLimits) []TradeRow {
	return BuildTradeRows(explorerURL, limits, h.Actions(snap))
}
