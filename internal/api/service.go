// Package api provides the HTTP handlers for reference data, increase
// order previews and account history, plus the WebSocket hub that pushes
// price ticks to clients.
//
// All monetary values are fixed-point integers encoded as JSON numbers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/synthetics-engine/internal/history"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

// Indexer runs claim and trade action queries. *subgraph.Client
// implements it.
type Indexer interface {
	history.ClaimSource
	history.TradeSource
}

// ServiceConfig wires a Service. Hub may be nil when broadcasting is not
// needed; Indexer may be nil when no subgraph serves the chain, in which
// case the history endpoints answer 503.
type ServiceConfig struct {
	ChainID     int64
	Store       store.Store
	Indexer     Indexer
	PageCache   history.PageCache
	Hub         *WSHub
	ExplorerURL string
	// MinCollateralUsd is reported with liquidation rows.
	MinCollateralUsd *big.Int
}

// Service handles reference data, previews and history queries.
type Service struct {
	chainID     int64
	store       store.Store
	indexer     Indexer
	claims      *history.Fetcher[subgraph.RawClaimAction]
	trades      *history.Fetcher[subgraph.RawTradeAction]
	wsHub       *WSHub
	explorerURL string
	limits      history.PositionLimits
}

// NewService creates a new service. A nil PageCache gets a small
// in-memory one.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.PageCache
	if cache == nil {
		cache = history.NewMemoryPageCache(128, 0)
	}
	return &Service{
		chainID:     cfg.ChainID,
		store:       cfg.Store,
		indexer:     cfg.Indexer,
		claims:      history.NewFetcher[subgraph.RawClaimAction](history.ScopeClaims, cache),
		trades:      history.NewFetcher[subgraph.RawTradeAction](history.ScopeTrades, cache),
		wsHub:       cfg.Hub,
		explorerURL: cfg.ExplorerURL,
		limits:      history.PositionLimits{MinCollateralUsd: cfg.MinCollateralUsd},
	}
}

// Routes mounts the REST API on r, relative to /api/v1. The WebSocket
// endpoint is mounted separately so it can bypass request timeouts.
func (s *Service) Routes(r chi.Router) {
	r.Get("/tokens", s.ListTokens)
	r.Put("/tokens/{address}", s.PutToken)
	r.Get("/markets", s.ListMarkets)
	r.Put("/markets/{address}", s.PutMarket)
	r.Post("/positions/increase/preview", s.PreviewIncrease)
	r.Get("/accounts/{account}/claims", s.GetClaims)
	r.Get("/accounts/{account}/trades", s.GetTrades)
}

// --- Reference data ---

// ListTokens handles GET /api/v1/tokens
func (s *Service) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.store.ListTokens(r.Context())
	if err != nil {
		slog.Error("list tokens failed", "err", err)
		writeError(w, "failed to list tokens", http.StatusInternalServerError)
		return
	}
	if tokens == nil {
		tokens = []model.Token{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

// PutToken handles PUT /api/v1/tokens/{address}
func (s *Service) PutToken(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !model.IsAddress(address) {
		writeError(w, "invalid token address", http.StatusBadRequest)
		return
	}

	var t model.Token
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if t.Symbol == "" {
		writeError(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if t.Decimals < 0 || t.Decimals > 36 {
		writeError(w, "decimals must be between 0 and 36", http.StatusBadRequest)
		return
	}
	t.Address = model.NormalizeAddress(address)

	if err := s.store.UpsertToken(r.Context(), &t); err != nil {
		slog.Error("upsert token failed", "address", t.Address, "err", err)
		writeError(w, "failed to save token", http.StatusInternalServerError)
		return
	}

	slog.Info("token saved", "chain_id", s.chainID, "address", t.Address, "symbol", t.Symbol)
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: MsgTokenUpdated, Token: &t})
	}
	writeJSON(w, http.StatusOK, t)
}

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context())
	if err != nil {
		slog.Error("list markets failed", "err", err)
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// PutMarket handles PUT /api/v1/markets/{address}
// The index, long and short tokens must already be stored.
func (s *Service) PutMarket(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !model.IsAddress(address) {
		writeError(w, "invalid market address", http.StatusBadRequest)
		return
	}

	var m model.Market
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	m.MarketTokenAddress = model.NormalizeAddress(address)

	ctx := r.Context()
	for _, tokenAddr := range []string{m.IndexTokenAddress, m.LongTokenAddress, m.ShortTokenAddress} {
		if !model.IsAddress(tokenAddr) {
			writeError(w, "index, long and short token addresses are required", http.StatusBadRequest)
			return
		}
		if _, err := s.store.GetToken(ctx, tokenAddr); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, "unknown token: "+tokenAddr, http.StatusBadRequest)
				return
			}
			writeError(w, "failed to load token", http.StatusInternalServerError)
			return
		}
	}

	if err := s.store.UpsertMarket(ctx, &m); err != nil {
		slog.Error("upsert market failed", "address", m.MarketTokenAddress, "err", err)
		writeError(w, "failed to save market", http.StatusInternalServerError)
		return
	}

	slog.Info("market saved", "chain_id", s.chainID, "address", m.MarketTokenAddress, "name", m.Name)
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: MsgMarketUpdated, Market: &m})
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Service) snapshot(ctx context.Context) (*model.Snapshot, error) {
	return store.LoadSnapshot(ctx, s.store, s.chainID)
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
