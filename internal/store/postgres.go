package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Fixed-point values are stored as NUMERIC(78,0) and read back as text so
// no precision is lost on the way through.
type PostgresStore struct {
	pool    *pgxpool.Pool
	chainID int64
}

// NewPostgresStore creates a PostgreSQL-backed store for one chain.
func NewPostgresStore(pool *pgxpool.Pool, chainID int64) *PostgresStore {
	return &PostgresStore{pool: pool, chainID: chainID}
}

const tokenColumns = `address, symbol, name, decimals, is_stable,
	        min_price::TEXT, max_price::TEXT, updated_at`

func (s *PostgresStore) UpsertToken(ctx context.Context, t *model.Token) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tokens (chain_id, address, symbol, name, decimals, is_stable, min_price, max_price, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9)
		 ON CONFLICT (chain_id, address) DO UPDATE
		 SET symbol = EXCLUDED.symbol, name = EXCLUDED.name, decimals = EXCLUDED.decimals,
		     is_stable = EXCLUDED.is_stable, min_price = EXCLUDED.min_price,
		     max_price = EXCLUDED.max_price, updated_at = EXCLUDED.updated_at`,
		s.chainID, model.NormalizeAddress(t.Address), t.Symbol, t.Name, t.Decimals, t.IsStable,
		numericArg(t.Prices.MinPrice), numericArg(t.Prices.MaxPrice), t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token %s: %w", t.Address, err)
	}
	return nil
}

func (s *PostgresStore) GetToken(ctx context.Context, address string) (*model.Token, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE chain_id = $1 AND address = $2`,
		s.chainID, model.NormalizeAddress(address))
	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("token %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", address, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTokens(ctx context.Context) ([]model.Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE chain_id = $1 ORDER BY address`, s.chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

func scanToken(row pgx.Row) (*model.Token, error) {
	var t model.Token
	var minPrice, maxPrice *string
	if err := row.Scan(&t.Address, &t.Symbol, &t.Name, &t.Decimals, &t.IsStable,
		&minPrice, &maxPrice, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Prices.MinPrice = numeric(minPrice)
	t.Prices.MaxPrice = numeric(maxPrice)
	return &t, nil
}

const marketColumns = `market_token_address, name, index_token_address, long_token_address,
	        short_token_address, is_disabled,
	        position_fee_factor::TEXT, position_impact_factor_positive::TEXT,
	        position_impact_factor_negative::TEXT, position_impact_exponent_factor::TEXT,
	        max_position_impact_factor_positive::TEXT,
	        swap_fee_factor::TEXT, swap_impact_factor_positive::TEXT,
	        swap_impact_factor_negative::TEXT, swap_impact_exponent_factor::TEXT,
	        long_interest_usd::TEXT, short_interest_usd::TEXT,
	        long_pool_amount::TEXT, short_pool_amount::TEXT, max_leverage::TEXT`

func (s *PostgresStore) UpsertMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets (chain_id, market_token_address, name, index_token_address,
		        long_token_address, short_token_address, is_disabled,
		        position_fee_factor, position_impact_factor_positive, position_impact_factor_negative,
		        position_impact_exponent_factor, max_position_impact_factor_positive,
		        swap_fee_factor, swap_impact_factor_positive, swap_impact_factor_negative,
		        swap_impact_exponent_factor, long_interest_usd, short_interest_usd,
		        long_pool_amount, short_pool_amount, max_leverage)
		 VALUES ($1, $2, $3, $4, $5, $6, $7,
		         $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC,
		         $13::NUMERIC, $14::NUMERIC, $15::NUMERIC, $16::NUMERIC,
		         $17::NUMERIC, $18::NUMERIC, $19::NUMERIC, $20::NUMERIC, $21::NUMERIC)
		 ON CONFLICT (chain_id, market_token_address) DO UPDATE
		 SET name = EXCLUDED.name, index_token_address = EXCLUDED.index_token_address,
		     long_token_address = EXCLUDED.long_token_address,
		     short_token_address = EXCLUDED.short_token_address,
		     is_disabled = EXCLUDED.is_disabled,
		     position_fee_factor = EXCLUDED.position_fee_factor,
		     position_impact_factor_positive = EXCLUDED.position_impact_factor_positive,
		     position_impact_factor_negative = EXCLUDED.position_impact_factor_negative,
		     position_impact_exponent_factor = EXCLUDED.position_impact_exponent_factor,
		     max_position_impact_factor_positive = EXCLUDED.max_position_impact_factor_positive,
		     swap_fee_factor = EXCLUDED.swap_fee_factor,
		     swap_impact_factor_positive = EXCLUDED.swap_impact_factor_positive,
		     swap_impact_factor_negative = EXCLUDED.swap_impact_factor_negative,
		     swap_impact_exponent_factor = EXCLUDED.swap_impact_exponent_factor,
		     long_interest_usd = EXCLUDED.long_interest_usd,
		     short_interest_usd = EXCLUDED.short_interest_usd,
		     long_pool_amount = EXCLUDED.long_pool_amount,
		     short_pool_amount = EXCLUDED.short_pool_amount,
		     max_leverage = EXCLUDED.max_leverage`,
		s.chainID,
		model.NormalizeAddress(m.MarketTokenAddress), m.Name,
		model.NormalizeAddress(m.IndexTokenAddress),
		model.NormalizeAddress(m.LongTokenAddress),
		model.NormalizeAddress(m.ShortTokenAddress),
		m.IsDisabled,
		numericArg(m.PositionFeeFactor), numericArg(m.PositionImpactFactorPositive),
		numericArg(m.PositionImpactFactorNegative), numericArg(m.PositionImpactExponentFactor),
		numericArg(m.MaxPositionImpactFactorPositive),
		numericArg(m.SwapFeeFactor), numericArg(m.SwapImpactFactorPositive),
		numericArg(m.SwapImpactFactorNegative), numericArg(m.SwapImpactExponentFactor),
		numericArg(m.LongInterestUsd), numericArg(m.ShortInterestUsd),
		numericArg(m.LongPoolAmount), numericArg(m.ShortPoolAmount), numericArg(m.MaxLeverage),
	)
	if err != nil {
		return fmt.Errorf("upsert market %s: %w", m.MarketTokenAddress, err)
	}
	return nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, address string) (*model.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE chain_id = $1 AND market_token_address = $2`,
		s.chainID, model.NormalizeAddress(address))
	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("market %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get market %s: %w", address, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE chain_id = $1 ORDER BY market_token_address`, s.chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func scanMarket(row pgx.Row) (*model.Market, error) {
	var m model.Market
	var factors [14]*string
	dest := []any{
		&m.MarketTokenAddress, &m.Name, &m.IndexTokenAddress, &m.LongTokenAddress,
		&m.ShortTokenAddress, &m.IsDisabled,
	}
	for i := range factors {
		dest = append(dest, &factors[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, field := range []**big.Int{
		&m.PositionFeeFactor, &m.PositionImpactFactorPositive,
		&m.PositionImpactFactorNegative, &m.PositionImpactExponentFactor,
		&m.MaxPositionImpactFactorPositive,
		&m.SwapFeeFactor, &m.SwapImpactFactorPositive,
		&m.SwapImpactFactorNegative, &m.SwapImpactExponentFactor,
		&m.LongInterestUsd, &m.ShortInterestUsd,
		&m.LongPoolAmount, &m.ShortPoolAmount, &m.MaxLeverage,
	} {
		*field = numeric(factors[i])
	}
	return &m, nil
}

// UpdateTokenPrices applies all ticks in one transaction.
func (s *PostgresStore) UpdateTokenPrices(ctx context.Context, updates []model.PriceUpdate) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	applied := 0
	for i := range updates {
		u := &updates[i]
		if !validPriceUpdate(u) {
			continue
		}
		tag, err := tx.Exec(ctx,
			`UPDATE tokens
			 SET min_price = $3::NUMERIC, max_price = $4::NUMERIC, updated_at = $5
			 WHERE chain_id = $1 AND address = $2`,
			s.chainID, model.NormalizeAddress(u.TokenAddress),
			u.MinPrice.String(), u.MaxPrice.String(), u.Timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("update price %s: %w", u.TokenAddress, err)
		}
		applied += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return applied, nil
}

// numericArg passes a fixed-point value as NUMERIC text, or NULL.
func numericArg(v *big.Int) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func numeric(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, err := fixedpoint.Parse(*s)
	if err != nil {
		return nil
	}
	return v
}
