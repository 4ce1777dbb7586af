// Package model defines the core domain types shared across the synthetics
// engine. All monetary values are fixed-point *big.Int (USD with 30
// decimals, token amounts with the token's decimals), never float64.
package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress returns the EIP-55 checksum form of an address. Indexer
// data is lowercase while reference data is checksummed.
func NormalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// IsAddress reports whether s is a hex-encoded account address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// TokenPrices is the bid/ask pair for a token.
type TokenPrices struct {
	MinPrice *big.Int `json:"min_price"`
	MaxPrice *big.Int `json:"max_price"`
}

// Token is one row of the token table, priced as of UpdatedAt.
type Token struct {
	Address   string      `json:"address" db:"address"`
	Symbol    string      `json:"symbol" db:"symbol"`
	Name      string      `json:"name" db:"name"`
	Decimals  int         `json:"decimals" db:"decimals"`
	IsStable  bool        `json:"is_stable" db:"is_stable"`
	Prices    TokenPrices `json:"prices"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// HasPrices reports whether both sides of the price pair are loaded.
func (t *Token) HasPrices() bool {
	return t != nil &&
		t.Prices.MinPrice != nil && t.Prices.MinPrice.Sign() > 0 &&
		t.Prices.MaxPrice != nil && t.Prices.MaxPrice.Sign() > 0
}

// PriceUpdate is a single price tick for one token.
type PriceUpdate struct {
	TokenAddress string    `json:"token_address"`
	MinPrice     *big.Int  `json:"min_price"`
	MaxPrice     *big.Int  `json:"max_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// Market is the stored configuration of one trading pair. Factors are
// scaled by 10^30, MaxLeverage is in basis points.
type Market struct {
	MarketTokenAddress string `json:"market_token_address" db:"market_token_address"`
	Name               string `json:"name" db:"name"`
	IndexTokenAddress  string `json:"index_token_address" db:"index_token_address"`
	LongTokenAddress   string `json:"long_token_address" db:"long_token_address"`
	ShortTokenAddress  string `json:"short_token_address" db:"short_token_address"`
	IsDisabled         bool   `json:"is_disabled" db:"is_disabled"`

	PositionFeeFactor               *big.Int `json:"position_fee_factor" db:"position_fee_factor"`
	PositionImpactFactorPositive    *big.Int `json:"position_impact_factor_positive" db:"position_impact_factor_positive"`
	PositionImpactFactorNegative    *big.Int `json:"position_impact_factor_negative" db:"position_impact_factor_negative"`
	PositionImpactExponentFactor    *big.Int `json:"position_impact_exponent_factor" db:"position_impact_exponent_factor"`
	MaxPositionImpactFactorPositive *big.Int `json:"max_position_impact_factor_positive" db:"max_position_impact_factor_positive"`

	SwapFeeFactor            *big.Int `json:"swap_fee_factor" db:"swap_fee_factor"`
	SwapImpactFactorPositive *big.Int `json:"swap_impact_factor_positive" db:"swap_impact_factor_positive"`
	SwapImpactFactorNegative *big.Int `json:"swap_impact_factor_negative" db:"swap_impact_factor_negative"`
	SwapImpactExponentFactor *big.Int `json:"swap_impact_exponent_factor" db:"swap_impact_exponent_factor"`

	LongInterestUsd  *big.Int `json:"long_interest_usd" db:"long_interest_usd"`
	ShortInterestUsd *big.Int `json:"short_interest_usd" db:"short_interest_usd"`
	LongPoolAmount   *big.Int `json:"long_pool_amount" db:"long_pool_amount"`
	ShortPoolAmount  *big.Int `json:"short_pool_amount" db:"short_pool_amount"`

	MaxLeverage *big.Int `json:"max_leverage" db:"max_leverage"`
}

// MarketInfo is a Market with its tokens resolved from the same snapshot.
type MarketInfo struct {
	Market
	IndexToken *Token `json:"index_token"`
	LongToken  *Token `json:"long_token"`
	ShortToken *Token `json:"short_token"`
}

// IsSameCollaterals reports whether the long and short tokens are equal.
func (m *MarketInfo) IsSameCollaterals() bool {
	return m.LongTokenAddress == m.ShortTokenAddress
}

// PositionInfo is an open position as projected by the position reader.
type PositionInfo struct {
	Key                     string   `json:"key"`
	Account                 string   `json:"account"`
	MarketAddress           string   `json:"market_address"`
	CollateralTokenAddress  string   `json:"collateral_token_address"`
	IsLong                  bool     `json:"is_long"`
	SizeInUsd               *big.Int `json:"size_in_usd"`
	SizeInTokens            *big.Int `json:"size_in_tokens"`
	InitialCollateralUsd    *big.Int `json:"initial_collateral_usd"`
	Pnl                     *big.Int `json:"pnl"`
	PendingBorrowingFeesUsd *big.Int `json:"pending_borrowing_fees_usd"`
	PendingFundingFeesUsd   *big.Int `json:"pending_funding_fees_usd"`
}
