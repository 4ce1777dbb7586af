// Package store persists the reference data the calculators and history
// aggregators resolve against: the token table with its latest prices and
// the market table. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache) and in-memory (for testing and seeded runs).
//
// A store holds one chain's data. Callers that serve several chains open
// one store per chain.
package store

import (
	"context"
	"errors"

	"github.com/atmx/synthetics-engine/internal/model"
)

// ErrNotFound is returned when a token or market is not in the store.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Addresses are accepted in any case
// and returned in checksum form.
type Store interface {
	// UpsertToken inserts or replaces a token, prices included.
	UpsertToken(ctx context.Context, t *model.Token) error

	// GetToken retrieves a token by address.
	GetToken(ctx context.Context, address string) (*model.Token, error)

	// ListTokens returns all tokens ordered by address.
	ListTokens(ctx context.Context) ([]model.Token, error)

	// UpsertMarket inserts or replaces a market configuration.
	UpsertMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by market token address.
	GetMarket(ctx context.Context, address string) (*model.Market, error)

	// ListMarkets returns all markets ordered by address.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// UpdateTokenPrices applies price ticks to known tokens and returns how
	// many were applied. Ticks for unknown tokens are skipped.
	UpdateTokenPrices(ctx context.Context, updates []model.PriceUpdate) (int, error)
}

// LoadSnapshot reads both tables and indexes them for one computation.
func LoadSnapshot(ctx context.Context, st Store, chainID int64) (*model.Snapshot, error) {
	tokens, err := st.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	markets, err := st.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewSnapshot(chainID, tokens, markets), nil
}

func validPriceUpdate(u *model.PriceUpdate) bool {
	return u.MinPrice != nil && u.MaxPrice != nil && u.MinPrice.Sign() > 0 && u.MaxPrice.Sign() > 0
}
