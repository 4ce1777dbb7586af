package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_SharesConcurrentLoads(t *testing.T) {
	f := NewFetcher[int](ScopeClaims, NewMemoryPageCache(16, 0))
	key := NewPageKey(42161, ScopeClaims, account, 0, Filters{})

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{1, 2, 3}, nil
	}

	const waiters = 10
	var wg sync.WaitGroup
	results := make([][]int, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page, err := f.Fetch(context.Background(), key, load)
			assert.NoError(t, err)
			results[i] = page
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, page := range results {
		assert.Equal(t, []int{1, 2, 3}, page)
	}
}

func TestFetcher_ServesFromCache(t *testing.T) {
	f := NewFetcher[int](ScopeTrades, NewMemoryPageCache(16, 0))
	key := NewPageKey(42161, ScopeTrades, account, 0, Filters{})

	_, err := f.Fetch(context.Background(), key, func(context.Context) ([]int, error) {
		return []int{7}, nil
	})
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), key, func(context.Context) ([]int, error) {
		t.Fatal("cached page reloaded")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, page)
}

func TestFetcher_DoesNotCacheFailures(t *testing.T) {
	f := NewFetcher[int](ScopeClaims, NewMemoryPageCache(16, 0))
	key := NewPageKey(42161, ScopeClaims, account, 0, Filters{})
	errDown := errors.New("indexer down")

	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		if calls == 1 {
			return nil, errDown
		}
		return []int{1}, nil
	}

	_, err := f.Fetch(context.Background(), key, load)
	assert.ErrorIs(t, err, errDown)

	page, err := f.Fetch(context.Background(), key, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, page)
	assert.Equal(t, 2, calls)
}

func TestFetcher_CancelledCallerDoesNotWaitForLoad(t *testing.T) {
	cache := NewMemoryPageCache(16, 0)
	f := NewFetcher[int](ScopeClaims, cache)
	key := NewPageKey(42161, ScopeClaims, account, 0, Filters{})

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) ([]int, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []int{4}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, key, load)
		errc <- err
	}()

	<-started
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller stayed blocked on the load")
	}

	close(release)
	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), key.String())
		return ok
	}, time.Second, 5*time.Millisecond)

	page, err := f.Fetch(context.Background(), key, load)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, page)
	assert.Equal(t, int32(1), calls.Load())
}
