package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
)

const (
	wethAddr = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
	usdcAddr = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
)

type recordingHub struct {
	mu      sync.Mutex
	batches [][]model.PriceUpdate
}

func (h *recordingHub) BroadcastPrices(updates []model.PriceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, updates)
}

func newStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.UpsertToken(ctx, &model.Token{Address: wethAddr, Symbol: "ETH", Decimals: 18}))
	require.NoError(t, st.UpsertToken(ctx, &model.Token{Address: usdcAddr, Symbol: "USDC", Decimals: 6, IsStable: true}))
	return st
}

func TestPoller_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/tickers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// ETH at $2000 and USDC at $1, in per-unit precision.
		fmt.Fprint(w, `[
			{"tokenAddress":"0x82af49447d8a07e3bd95bd0d56f35241523fbab1","tokenSymbol":"ETH",
			 "minPrice":"1999000000000000","maxPrice":"2001000000000000","updatedAt":1700000000000},
			{"tokenAddress":"0xaf88d065e77c8cc2239327c5edb3a432268e5831","tokenSymbol":"USDC",
			 "minPrice":"1000000000000000000000000","maxPrice":"1000000000000000000000000","updatedAt":1700000000000},
			{"tokenAddress":"0x912CE59144191C1204E64559FE8253a0e49E6548","tokenSymbol":"ARB",
			 "minPrice":"1","maxPrice":"1","updatedAt":1700000000000}
		]`)
	}))
	defer srv.Close()

	st := newStore(t)
	hub := &recordingHub{}
	p := NewPoller(srv.URL+"/", st, hub, 0)

	applied, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	eth, err := st.GetToken(context.Background(), wethAddr)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.USD(1999).String(), eth.Prices.MinPrice.String())
	assert.Equal(t, fixedpoint.USD(2001).String(), eth.Prices.MaxPrice.String())
	assert.Equal(t, int64(1700000000), eth.UpdatedAt.Unix())

	usdc, err := st.GetToken(context.Background(), usdcAddr)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.USD(1).String(), usdc.Prices.MaxPrice.String())

	require.Len(t, hub.batches, 1)
	assert.Len(t, hub.batches[0], 2)
}

func TestPoller_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	hub := &recordingHub{}
	_, err := NewPoller(srv.URL, newStore(t), hub, 0).Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Empty(t, hub.batches)
}

func TestNATSSubscriber_Handle(t *testing.T) {
	st := newStore(t)
	hub := &recordingHub{}
	sub := NewNATSSubscriber(st, hub)
	ctx := context.Background()

	err := sub.Handle(ctx, []byte(fmt.Sprintf(`{"token_address":%q,"min_price":%q,"max_price":%q,"timestamp":1700000000}`,
		wethAddr, fixedpoint.USD(1950).String(), fixedpoint.USD(1960).String())))
	require.NoError(t, err)

	eth, err := st.GetToken(ctx, wethAddr)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.USD(1960).String(), eth.Prices.MaxPrice.String())
	require.Len(t, hub.batches, 1)

	batch := fmt.Sprintf(`[{"token_address":%q,"min_price":"1000000000000000000000000000000","max_price":"1000000000000000000000000000000","timestamp":1700000001}]`, usdcAddr)
	require.NoError(t, sub.Handle(ctx, []byte(batch)))
	assert.Len(t, hub.batches, 2)
}

func TestNATSSubscriber_RejectsMalformed(t *testing.T) {
	sub := NewNATSSubscriber(newStore(t), &recordingHub{})
	ctx := context.Background()

	for name, body := range map[string]string{
		"not json":    `{`,
		"bad address": `{"token_address":"eth","min_price":"1","max_price":"1"}`,
		"bad price":   fmt.Sprintf(`{"token_address":%q,"min_price":"1.5","max_price":"1"}`, wethAddr),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, sub.Handle(ctx, []byte(body)), ErrBadTick)
		})
	}
}

func TestNATSSubscriber_UnknownTokenNotBroadcast(t *testing.T) {
	hub := &recordingHub{}
	sub := NewNATSSubscriber(newStore(t), hub)

	err := sub.Handle(context.Background(), []byte(`{"token_address":"0x912CE59144191C1204E64559FE8253a0e49E6548","min_price":"1","max_price":"1"}`))
	require.NoError(t, err)
	assert.Empty(t, hub.batches)
}
