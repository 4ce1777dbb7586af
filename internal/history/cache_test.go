package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryPageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryPageCache(2, 0)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	c.Set(ctx, "c", []byte("3"))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	page, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), page)
}

func TestMemoryPageCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	c := NewMemoryPageCache(8, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", []byte("1"))
	now = now.Add(59 * time.Second)
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryPageCache_OverwriteRefreshes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryPageCache(2, 0)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "a", []byte("2"))
	assert.Equal(t, 1, c.Len())

	page, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), page)
}
