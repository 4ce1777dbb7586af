package increase

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// FeesParams are the inputs of DisplayedFees. Price impact fields are left
// nil for limit orders, whose impact is only known at execution.
type FeesParams struct {
	InitialCollateralUsd        *big.Int
	SizeDeltaUsd                *big.Int
	SwapSteps                   []model.SwapStep
	PositionFeeUsd              *big.Int
	SwapPriceImpactDeltaUsd     *big.Int
	PositionPriceImpactDeltaUsd *big.Int
}

// DisplayedFees builds the fee breakdown shown with a preview. Swap items
// are relative to the initial collateral, position items to the size.
func DisplayedFees(p FeesParams) model.TradeFees {
	var fees model.TradeFees
	var all []*model.FeeItem

	for _, step := range p.SwapSteps {
		if step.SwapFeeUsd == nil {
			continue
		}
		item := feeItem(new(big.Int).Neg(step.SwapFeeUsd), p.InitialCollateralUsd)
		item.MarketAddress = step.MarketAddress
		item.TokenInAddress = step.TokenInAddress
		item.TokenOutAddress = step.TokenOutAddress
		fees.SwapFees = append(fees.SwapFees, *item)
	}
	for i := range fees.SwapFees {
		all = append(all, &fees.SwapFees[i])
	}

	if p.SwapPriceImpactDeltaUsd != nil {
		fees.SwapPriceImpact = feeItem(p.SwapPriceImpactDeltaUsd, p.InitialCollateralUsd)
		all = append(all, fees.SwapPriceImpact)
	}
	if p.PositionFeeUsd != nil {
		fees.PositionFee = feeItem(new(big.Int).Neg(p.PositionFeeUsd), p.SizeDeltaUsd)
		all = append(all, fees.PositionFee)
	}
	if p.PositionPriceImpactDeltaUsd != nil {
		fees.PositionPriceImpact = feeItem(p.PositionPriceImpactDeltaUsd, p.SizeDeltaUsd)
		all = append(all, fees.PositionPriceImpact)
	}

	fees.TotalFees = totalFeeItem(all)
	return fees
}

func feeItem(deltaUsd, basis *big.Int) *model.FeeItem {
	bps := fixedpoint.Zero()
	if fixedpoint.IsPositive(basis) {
		bps = fixedpoint.ToBPS(deltaUsd, basis)
	}
	return &model.FeeItem{DeltaUsd: new(big.Int).Set(deltaUsd), Bps: bps}
}

func totalFeeItem(items []*model.FeeItem) *model.FeeItem {
	total := &model.FeeItem{DeltaUsd: fixedpoint.Zero(), Bps: fixedpoint.Zero()}
	for _, it := range items {
		total.DeltaUsd.Add(total.DeltaUsd, it.DeltaUsd)
		total.Bps.Add(total.Bps, it.Bps)
	}
	return total
}
