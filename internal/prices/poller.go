package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
)

// Ticker is one entry of the stats backend's /prices/tickers response.
// Prices are per smallest token unit, scaled by 10^(30-decimals).
type Ticker struct {
	TokenAddress string `json:"tokenAddress"`
	TokenSymbol  string `json:"tokenSymbol"`
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// Poller refreshes token prices from the stats backend on an interval.
type Poller struct {
	baseURL    string
	httpClient *http.Client
	st         store.Store
	hub        Broadcaster
	interval   time.Duration
	now        func() time.Time
}

// NewPoller creates a poller for backendURL, which is a stats backend base
// URL such as https://arbitrum-api.gmxinfra.io.
func NewPoller(backendURL string, st store.Store, hub Broadcaster, interval time.Duration) *Poller {
	return &Poller{
		baseURL:    strings.TrimRight(backendURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		st:         st,
		hub:        hub,
		interval:   interval,
		now:        time.Now,
	}
}

// Run polls until ctx is cancelled. A failed poll is logged and retried on
// the next tick.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("price poller started", "url", p.baseURL, "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("price poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("price poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches the tickers once and applies the ones for known tokens.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	tickers, err := p.fetchTickers(ctx)
	if err != nil {
		return 0, err
	}
	tokens, err := p.st.ListTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}
	decimals := make(map[string]int, len(tokens))
	for _, t := range tokens {
		decimals[t.Address] = t.Decimals
	}

	updates := make([]model.PriceUpdate, 0, len(tickers))
	for _, tk := range tickers {
		addr := model.NormalizeAddress(tk.TokenAddress)
		dec, ok := decimals[addr]
		if !ok {
			continue
		}
		u, err := tk.priceUpdate(addr, dec, p.now())
		if err != nil {
			slog.Debug("skipping ticker", "token", tk.TokenSymbol, "err", err)
			continue
		}
		updates = append(updates, u)
	}
	return apply(ctx, p.st, p.hub, SourceBackend, updates)
}

func (p *Poller) fetchTickers(ctx context.Context) ([]Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/prices/tickers", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch tickers: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tickers []Ticker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}
	return tickers, nil
}

// priceUpdate converts the per-unit backend prices to USD per whole token.
func (tk Ticker) priceUpdate(addr string, decimals int, now time.Time) (model.PriceUpdate, error) {
	minPrice, err := fixedpoint.Parse(tk.MinPrice)
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("%w: %v", ErrBadTick, err)
	}
	maxPrice, err := fixedpoint.Parse(tk.MaxPrice)
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("%w: %v", ErrBadTick, err)
	}
	scale := fixedpoint.ExpandDecimals(1, decimals)
	ts := now
	if tk.UpdatedAt > 0 {
		ts = time.UnixMilli(tk.UpdatedAt).UTC()
	}
	return model.PriceUpdate{
		TokenAddress: addr,
		MinPrice:     new(big.Int).Mul(minPrice, scale),
		MaxPrice:     new(big.Int).Mul(maxPrice, scale),
		Timestamp:    ts,
	}, nil
}
