package model

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrUnknownOrderType is returned when an indexer record carries an order
// type outside the known range.
var ErrUnknownOrderType = errors.New("model: unknown order type")

// OrderType matches the on-chain order type enum.
type OrderType int

const (
	MarketSwap OrderType = iota
	LimitSwap
	MarketIncrease
	LimitIncrease
	MarketDecrease
	LimitDecrease
	StopLossDecrease
	Liquidation
)

var orderTypeNames = [...]string{
	"MarketSwap",
	"LimitSwap",
	"MarketIncrease",
	"LimitIncrease",
	"MarketDecrease",
	"LimitDecrease",
	"StopLossDecrease",
	"Liquidation",
}

// ParseOrderType validates a raw order type.
func ParseOrderType(v int) (OrderType, error) {
	if v < 0 || v >= len(orderTypeNames) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOrderType, v)
	}
	return OrderType(v), nil
}

func (o OrderType) String() string {
	if o < 0 || int(o) >= len(orderTypeNames) {
		return fmt.Sprintf("OrderType(%d)", int(o))
	}
	return orderTypeNames[o]
}

func (o OrderType) IsSwap() bool     { return o == MarketSwap || o == LimitSwap }
func (o OrderType) IsIncrease() bool { return o == MarketIncrease || o == LimitIncrease }
func (o OrderType) IsMarket() bool {
	return o == MarketSwap || o == MarketIncrease || o == MarketDecrease
}
func (o OrderType) IsLimit() bool { return o == LimitSwap || o == LimitIncrease }
func (o OrderType) IsTriggerDecrease() bool {
	return o == LimitDecrease || o == StopLossDecrease
}
func (o OrderType) IsLiquidation() bool { return o == Liquidation }

// TradeActionType is the order lifecycle event of a trade action.
type TradeActionType string

const (
	OrderCreated   TradeActionType = "OrderCreated"
	OrderExecuted  TradeActionType = "OrderExecuted"
	OrderCancelled TradeActionType = "OrderCancelled"
	OrderUpdated   TradeActionType = "OrderUpdated"
	OrderFrozen    TradeActionType = "OrderFrozen"
)

// Transaction identifies the transaction that emitted an event.
type Transaction struct {
	Timestamp int64  `json:"timestamp"`
	Hash      string `json:"hash"`
}

// TradeAction is an immutable record of an order event. Token and market
// pointers are resolved from the snapshot that was current when the record
// was aggregated.
type TradeAction struct {
	ID        string          `json:"id"`
	EventName TradeActionType `json:"event_name"`
	Account   string          `json:"account"`
	OrderKey  string          `json:"order_key"`
	OrderType OrderType       `json:"order_type"`
	IsLong    bool            `json:"is_long"`

	MarketAddress          string      `json:"market_address,omitempty"`
	Market                 *MarketInfo `json:"-"`
	IndexToken             *Token      `json:"index_token,omitempty"`
	InitialCollateralToken *Token      `json:"initial_collateral_token,omitempty"`
	TargetCollateralToken  *Token      `json:"target_collateral_token,omitempty"`
	SwapPath               []string    `json:"swap_path,omitempty"`

	InitialCollateralDeltaAmount *big.Int `json:"initial_collateral_delta_amount,omitempty"`
	SizeDeltaUsd                 *big.Int `json:"size_delta_usd,omitempty"`
	TriggerPrice                 *big.Int `json:"trigger_price,omitempty"`
	AcceptablePrice              *big.Int `json:"acceptable_price,omitempty"`
	ExecutionPrice               *big.Int `json:"execution_price,omitempty"`
	MinOutputAmount              *big.Int `json:"min_output_amount,omitempty"`
	ExecutionAmountOut           *big.Int `json:"execution_amount_out,omitempty"`

	Reason      string      `json:"reason,omitempty"`
	Transaction Transaction `json:"transaction"`
}

// ClaimType is the event name of a claim action.
type ClaimType string

const (
	ClaimFunding              ClaimType = "ClaimFunding"
	ClaimPriceImpact          ClaimType = "ClaimPriceImpact"
	SettleFundingFeeCreated   ClaimType = "SettleFundingFeeCreated"
	SettleFundingFeeExecuted  ClaimType = "SettleFundingFeeExecuted"
	SettleFundingFeeCancelled ClaimType = "SettleFundingFeeCancelled"
)

// Claim action kinds, carried in the "type" field of each variant.
const (
	ClaimKindCollateral = "collateral"
	ClaimKindFundingFee = "fundingFee"
)

// ClaimAction is either a *ClaimCollateralAction or a
// *ClaimFundingFeeAction.
type ClaimAction interface {
	ActionID() string
	Kind() string
	claimAction()
}

// ClaimMarketItem is the claimed amount per side of one market.
type ClaimMarketItem struct {
	Market           *MarketInfo `json:"market"`
	LongTokenAmount  *big.Int    `json:"long_token_amount"`
	ShortTokenAmount *big.Int    `json:"short_token_amount"`
}

// ClaimCollateralAction is a ClaimFunding or ClaimPriceImpact event grouped
// by market.
type ClaimCollateralAction struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	EventName       ClaimType         `json:"event_name"`
	Account         string            `json:"account"`
	ClaimItems      []ClaimMarketItem `json:"claim_items"`
	Tokens          []*Token          `json:"tokens"`
	Amounts         []*big.Int        `json:"amounts"`
	TokenPrices     []*big.Int        `json:"token_prices"`
	Timestamp       int64             `json:"timestamp"`
	TransactionHash string            `json:"transaction_hash"`
}

func (a *ClaimCollateralAction) ActionID() string { return a.ID }
func (a *ClaimCollateralAction) Kind() string     { return ClaimKindCollateral }
func (a *ClaimCollateralAction) claimAction()     {}

// ClaimFundingFeeAction is a funding fee settlement event.
type ClaimFundingFeeAction struct {
	ID              string        `json:"id"`
	Type            string        `json:"type"`
	EventName       ClaimType     `json:"event_name"`
	Account         string        `json:"account"`
	Markets         []*MarketInfo `json:"markets"`
	Tokens          []*Token      `json:"tokens"`
	Amounts         []*big.Int    `json:"amounts"`
	TokenPrices     []*big.Int    `json:"token_prices"`
	IsLongOrders    []bool        `json:"is_long_orders"`
	Timestamp       int64         `json:"timestamp"`
	TransactionHash string        `json:"transaction_hash"`
}

func (a *ClaimFundingFeeAction) ActionID() string { return a.ID }
func (a *ClaimFundingFeeAction) Kind() string     { return ClaimKindFundingFee }
func (a *ClaimFundingFeeAction) claimAction()     {}
