package model

import "math/big"

// SwapStep is one hop of a swap route.
type SwapStep struct {
	MarketAddress       string   `json:"market_address"`
	TokenInAddress      string   `json:"token_in_address"`
	TokenOutAddress     string   `json:"token_out_address"`
	IsLong              bool     `json:"is_long"`
	SwapFeeAmount       *big.Int `json:"swap_fee_amount"`
	SwapFeeUsd          *big.Int `json:"swap_fee_usd"`
	PriceImpactDeltaUsd *big.Int `json:"price_impact_delta_usd"`
	AmountIn            *big.Int `json:"amount_in"`
	AmountOut           *big.Int `json:"amount_out"`
	UsdIn               *big.Int `json:"usd_in"`
	UsdOut              *big.Int `json:"usd_out"`
}

// SwapPathStats is the result of routing a USD amount from one token to
// another through zero or more markets.
type SwapPathStats struct {
	SwapPath                     []string   `json:"swap_path"`
	SwapSteps                    []SwapStep `json:"swap_steps"`
	TokenInAddress               string     `json:"token_in_address"`
	TokenOutAddress              string     `json:"token_out_address"`
	TotalSwapPriceImpactDeltaUsd *big.Int   `json:"total_swap_price_impact_delta_usd"`
	TotalSwapFeeUsd              *big.Int   `json:"total_swap_fee_usd"`
	TotalFeesDeltaUsd            *big.Int   `json:"total_fees_delta_usd"`
	UsdOut                       *big.Int   `json:"usd_out"`
	AmountOut                    *big.Int   `json:"amount_out"`
}

// SwapAmounts is the pair of token amounts on either side of a swap.
type SwapAmounts struct {
	AmountIn      *big.Int       `json:"amount_in"`
	UsdIn         *big.Int       `json:"usd_in"`
	AmountOut     *big.Int       `json:"amount_out"`
	UsdOut        *big.Int       `json:"usd_out"`
	PriceIn       *big.Int       `json:"price_in"`
	PriceOut      *big.Int       `json:"price_out"`
	SwapPathStats *SwapPathStats `json:"swap_path_stats,omitempty"`
}

// IncreasePositionAmounts is the derived amount bundle for a
// position-increasing order.
type IncreasePositionAmounts struct {
	InitialCollateralAmount *big.Int `json:"initial_collateral_amount"`
	InitialCollateralUsd    *big.Int `json:"initial_collateral_usd"`

	CollateralAmount       *big.Int `json:"collateral_amount"`
	CollateralUsd          *big.Int `json:"collateral_usd"`
	CollateralUsdAfterFees *big.Int `json:"collateral_usd_after_fees"`

	SizeDeltaUsd               *big.Int `json:"size_delta_usd"`
	SizeDeltaInTokens          *big.Int `json:"size_delta_in_tokens"`
	SizeDeltaAfterFeesUsd      *big.Int `json:"size_delta_after_fees_usd"`
	SizeDeltaAfterFeesInTokens *big.Int `json:"size_delta_after_fees_in_tokens"`

	PositionFeeUsd              *big.Int `json:"position_fee_usd"`
	PositionPriceImpactDeltaUsd *big.Int `json:"position_price_impact_delta_usd"`

	AcceptablePrice              *big.Int `json:"acceptable_price"`
	AcceptablePriceImpactBps     *big.Int `json:"acceptable_price_impact_bps"`
	AcceptablePriceAfterSlippage *big.Int `json:"acceptable_price_after_slippage"`

	EntryMarkPrice *big.Int `json:"entry_mark_price"`
	TriggerPrice   *big.Int `json:"trigger_price,omitempty"`

	SwapPathStats *SwapPathStats `json:"swap_path_stats,omitempty"`
}

// NextPositionValues projects the position that results from an order.
// Nil fields are not available.
type NextPositionValues struct {
	NextSizeUsd       *big.Int `json:"next_size_usd"`
	NextCollateralUsd *big.Int `json:"next_collateral_usd"`
	NextLeverage      *big.Int `json:"next_leverage"`
	NextLiqPrice      *big.Int `json:"next_liq_price"`
	NextEntryPrice    *big.Int `json:"next_entry_price"`
}

// FeeItem is a displayed fee: DeltaUsd is negative for a cost and Bps is
// relative to the fee's basis. Swap fee items also name their hop.
type FeeItem struct {
	DeltaUsd        *big.Int `json:"delta_usd"`
	Bps             *big.Int `json:"bps"`
	MarketAddress   string   `json:"market_address,omitempty"`
	TokenInAddress  string   `json:"token_in_address,omitempty"`
	TokenOutAddress string   `json:"token_out_address,omitempty"`
}

// TradeFees groups the fees shown with an order preview.
type TradeFees struct {
	TotalFees           *FeeItem  `json:"total_fees,omitempty"`
	SwapFees            []FeeItem `json:"swap_fees,omitempty"`
	SwapPriceImpact     *FeeItem  `json:"swap_price_impact,omitempty"`
	PositionFee         *FeeItem  `json:"position_fee,omitempty"`
	PositionPriceImpact *FeeItem  `json:"position_price_impact,omitempty"`
}

// IncreasePositionTradeParams is the full preview for a position increase.
type IncreasePositionTradeParams struct {
	IncreasePositionAmounts
	MarketAddress          string             `json:"market_address"`
	InitialCollateralToken string             `json:"initial_collateral_token"`
	CollateralToken        string             `json:"collateral_token"`
	IsLong                 bool               `json:"is_long"`
	NextPositionValues     NextPositionValues `json:"next_position_values"`
	Fees                   TradeFees          `json:"fees"`
}
