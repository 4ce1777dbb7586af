package history

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/atmx/synthetics-engine/internal/metrics"
)

// LoadFunc loads one page from the indexer.
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

// Fetcher memoizes page loads by PageKey. Concurrent loads of the same key
// share one indexer request; successful pages are cached and failures are
// returned to every waiter without being cached.
type Fetcher[T any] struct {
	scope Scope
	cache PageCache
	group singleflight.Group
}

// NewFetcher creates a fetcher for one scope over cache.
func NewFetcher[T any](scope Scope, cache PageCache) *Fetcher[T] {
	return &Fetcher[T]{scope: scope, cache: cache}
}

// Fetch returns the page for key, loading it with load on a cache miss.
//
// The load runs detached from ctx's cancellation so a caller that gives up
// does not fail the other waiters; its result still lands in the cache.
func (f *Fetcher[T]) Fetch(ctx context.Context, key PageKey, load LoadFunc[T]) ([]T, error) {
	k := key.String()
	if page, ok := f.cached(ctx, k); ok {
		return page, nil
	}

	// The load outlives a cancelled caller so other waiters and the cache
	// still get the page.
	lctx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(k, func() (any, error) {
		if page, ok := f.cached(lctx, k); ok {
			return page, nil
		}
		page, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(page); err == nil {
			f.cache.Set(lctx, k, data)
		} else {
			slog.Warn("page not cached", "scope", f.scope, "key", k, "err", err)
		}
		return page, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.SharedPageLoads.WithLabelValues(string(f.scope)).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	}
}

func (f *Fetcher[T]) cached(ctx context.Context, key string) ([]T, bool) {
	data, ok := f.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var page []T
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false
	}
	return page, true
}
