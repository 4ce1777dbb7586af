package increase

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/model"
)

// TradeParamsInput extends Params with what the position projection needs.
type TradeParamsInput struct {
	Params
	ExistingPosition  *model.PositionInfo
	ShowPnlInLeverage bool
}

// ComputeTradeParams assembles the full preview of an increase order:
// amounts, projected position and displayed fees. Returns nil when the
// amounts cannot be computed yet.
func ComputeTradeParams(in TradeParamsInput) *model.IncreasePositionTradeParams {
	amounts := ComputeIncreaseAmounts(in.Params)
	if amounts == nil {
		return nil
	}

	next := ComputeNextPositionValues(NextPositionParams{
		Market:             in.Market,
		ExistingPosition:   in.ExistingPosition,
		SizeDeltaUsd:       amounts.SizeDeltaUsd,
		CollateralDeltaUsd: amounts.CollateralUsd,
		ShowPnlInLeverage:  in.ShowPnlInLeverage,
		Leverage:           in.Leverage,
		EntryMarkPrice:     amounts.EntryMarkPrice,
		IsLong:             in.IsLong,
		MaxLeverage:        maxLeverage(in.Market),
	})

	fp := FeesParams{
		InitialCollateralUsd: amounts.InitialCollateralUsd,
		SizeDeltaUsd:         amounts.SizeDeltaUsd,
		PositionFeeUsd:       amounts.PositionFeeUsd,
	}
	if amounts.SwapPathStats != nil {
		fp.SwapSteps = amounts.SwapPathStats.SwapSteps
	}
	if !in.IsLimit {
		if amounts.SwapPathStats != nil {
			fp.SwapPriceImpactDeltaUsd = amounts.SwapPathStats.TotalSwapPriceImpactDeltaUsd
		}
		fp.PositionPriceImpactDeltaUsd = amounts.PositionPriceImpactDeltaUsd
	}

	out := &model.IncreasePositionTradeParams{
		IncreasePositionAmounts: *amounts,
		IsLong:                  in.IsLong,
		NextPositionValues:      next,
		Fees:                    DisplayedFees(fp),
	}
	if in.Market != nil {
		out.MarketAddress = in.Market.MarketTokenAddress
	}
	if in.InitialCollateralToken != nil {
		out.InitialCollateralToken = in.InitialCollateralToken.Address
	}
	if in.CollateralToken != nil {
		out.CollateralToken = in.CollateralToken.Address
	}
	return out
}

func maxLeverage(m *model.MarketInfo) *big.Int {
	if m == nil {
		return nil
	}
	return m.MaxLeverage
}
