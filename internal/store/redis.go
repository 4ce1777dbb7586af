package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/synthetics-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
}

// NewCachedStore creates a cached wrapper around a primary store. Keys are
// namespaced by chain so several chains can share one Redis.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration, chainID int64) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		prefix:  "refdata:" + strconv.FormatInt(chainID, 10) + ":",
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpsertToken(ctx context.Context, t *model.Token) error {
	if err := s.primary.UpsertToken(ctx, t); err != nil {
		return err
	}
	s.rdb.Del(ctx, s.tokenKey(t.Address), s.tokensKey())
	return nil
}

func (s *CachedStore) UpsertMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.UpsertMarket(ctx, m); err != nil {
		return err
	}
	s.rdb.Del(ctx, s.marketKey(m.MarketTokenAddress), s.marketsKey())
	return nil
}

func (s *CachedStore) UpdateTokenPrices(ctx context.Context, updates []model.PriceUpdate) (int, error) {
	applied, err := s.primary.UpdateTokenPrices(ctx, updates)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(updates)+1)
	keys = append(keys, s.tokensKey())
	for _, u := range updates {
		keys = append(keys, s.tokenKey(u.TokenAddress))
	}
	s.rdb.Del(ctx, keys...)
	return applied, nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetToken(ctx context.Context, address string) (*model.Token, error) {
	key := s.tokenKey(address)
	var t model.Token
	if s.cached(ctx, key, &t) {
		return &t, nil
	}

	// Cache miss: read from primary.
	got, err := s.primary.GetToken(ctx, address)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, key, got)
	return got, nil
}

func (s *CachedStore) ListTokens(ctx context.Context) ([]model.Token, error) {
	var tokens []model.Token
	if s.cached(ctx, s.tokensKey(), &tokens) {
		return tokens, nil
	}

	tokens, err := s.primary.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, s.tokensKey(), tokens)
	return tokens, nil
}

func (s *CachedStore) GetMarket(ctx context.Context, address string) (*model.Market, error) {
	key := s.marketKey(address)
	var m model.Market
	if s.cached(ctx, key, &m) {
		return &m, nil
	}

	got, err := s.primary.GetMarket(ctx, address)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, key, got)
	return got, nil
}

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	var markets []model.Market
	if s.cached(ctx, s.marketsKey(), &markets) {
		return markets, nil
	}

	markets, err := s.primary.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, s.marketsKey(), markets)
	return markets, nil
}

// --- Helpers ---

func (s *CachedStore) cached(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func (s *CachedStore) tokenKey(addr string) string {
	return s.prefix + "token:" + model.NormalizeAddress(addr)
}

func (s *CachedStore) marketKey(addr string) string {
	return s.prefix + "market:" + model.NormalizeAddress(addr)
}

func (s *CachedStore) tokensKey() string  { return s.prefix + "tokens" }
func (s *CachedStore) marketsKey() string { return s.prefix + "markets" }
