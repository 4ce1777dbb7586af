package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and for runs seeded from a reference data file.
type MemoryStore struct {
	mu      sync.RWMutex
	tokens  map[string]*model.Token
	markets map[string]*model.Market
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:  make(map[string]*model.Token),
		markets: make(map[string]*model.Market),
	}
}

func (s *MemoryStore) UpsertToken(_ context.Context, t *model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *t
	copy.Address = model.NormalizeAddress(t.Address)
	s.tokens[copy.Address] = &copy
	return nil
}

func (s *MemoryStore) GetToken(_ context.Context, address string) (*model.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[model.NormalizeAddress(address)]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", address, ErrNotFound)
	}
	copy := *t
	return &copy, nil
}

func (s *MemoryStore) ListTokens(_ context.Context) ([]model.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]model.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		tokens = append(tokens, *t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Address < tokens[j].Address })
	return tokens, nil
}

func (s *MemoryStore) UpsertMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *m
	copy.MarketTokenAddress = model.NormalizeAddress(m.MarketTokenAddress)
	copy.IndexTokenAddress = model.NormalizeAddress(m.IndexTokenAddress)
	copy.LongTokenAddress = model.NormalizeAddress(m.LongTokenAddress)
	copy.ShortTokenAddress = model.NormalizeAddress(m.ShortTokenAddress)
	s.markets[copy.MarketTokenAddress] = &copy
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, address string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[model.NormalizeAddress(address)]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", address, ErrNotFound)
	}
	copy := *m
	return &copy, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].MarketTokenAddress < markets[j].MarketTokenAddress })
	return markets, nil
}

func (s *MemoryStore) UpdateTokenPrices(_ context.Context, updates []model.PriceUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for i := range updates {
		u := &updates[i]
		if !validPriceUpdate(u) {
			continue
		}
		t, ok := s.tokens[model.NormalizeAddress(u.TokenAddress)]
		if !ok {
			continue
		}
		// Replace rather than mutate: copies handed out share the old pointers.
		next := *t
		next.Prices = model.TokenPrices{
			MinPrice: fixedpoint.Copy(u.MinPrice),
			MaxPrice: fixedpoint.Copy(u.MaxPrice),
		}
		next.UpdatedAt = u.Timestamp
		s.tokens[next.Address] = &next
		applied++
	}
	return applied, nil
}
