// Package increase derives the amounts of a position-increasing order from
// what the trader typed: either the collateral they pay in, or the position
// size they want in index-token units.
//
// Every function here is pure. Reference data comes in as explicit tokens
// and markets taken from one snapshot; nothing is read from shared state.
package increase

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/pricing"
	"github.com/atmx/synthetics-engine/internal/swap"
)

// AmountInput is the amount the trader entered. It is either
// ByCollateralAmount or ByIndexAmount.
type AmountInput interface {
	isAmountInput()
}

// ByCollateralAmount sizes the position from the initial collateral paid in,
// in units of the initial collateral token.
type ByCollateralAmount struct {
	InitialCollateralAmount *big.Int
}

// ByIndexAmount sizes the position from the post-fee size in index-token
// units and derives the collateral required.
type ByIndexAmount struct {
	IndexTokenAmount *big.Int
}

func (ByCollateralAmount) isAmountInput() {}
func (ByIndexAmount) isAmountInput()      {}

// Mode names the input mode for logs and metrics.
func Mode(in AmountInput) string {
	switch in.(type) {
	case ByCollateralAmount:
		return "collateral"
	case ByIndexAmount:
		return "index"
	default:
		return "unknown"
	}
}

// Params are the inputs of ComputeIncreaseAmounts. Leverage and
// AcceptablePriceImpactBps are in basis points, AllowedSlippage too.
type Params struct {
	Market                 *model.MarketInfo
	InitialCollateralToken *model.Token
	CollateralToken        *model.Token
	IndexToken             *model.Token

	Amount AmountInput

	IsLong                   bool
	Leverage                 *big.Int
	TriggerPrice             *big.Int
	IsLimit                  bool
	AllowedSlippage          int64
	AcceptablePriceImpactBps *big.Int

	FindSwapPath swap.PathFinder
}

// ComputeIncreaseAmounts derives the amount bundle for an increase order.
//
// It returns nil when the index token's mark price is not loaded: the
// preview cannot be computed yet. When the collateral cannot be routed, or
// the requested size is not positive, it returns the zero bundle priced at
// the entry mark price.
func ComputeIncreaseAmounts(p Params) *model.IncreasePositionAmounts {
	if p.IndexToken == nil || p.Amount == nil {
		return nil
	}
	markPrice := pricing.MarkPrice(p.IndexToken.Prices, true, p.IsLong)
	if markPrice == nil {
		return nil
	}

	var triggerPrice *big.Int
	if p.IsLimit && fixedpoint.IsPositive(p.TriggerPrice) {
		triggerPrice = new(big.Int).Set(p.TriggerPrice)
	}
	entryMarkPrice := markPrice
	if triggerPrice != nil {
		entryMarkPrice = triggerPrice
	}

	switch in := p.Amount.(type) {
	case ByCollateralAmount:
		return byCollateral(p, in, entryMarkPrice, triggerPrice)
	case ByIndexAmount:
		return byIndex(p, in, entryMarkPrice, triggerPrice)
	default:
		return nil
	}
}

func byCollateral(p Params, in ByCollateralAmount, entryMarkPrice, triggerPrice *big.Int) *model.IncreasePositionAmounts {
	if p.InitialCollateralToken == nil || p.CollateralToken == nil || p.FindSwapPath == nil {
		return defaultAmounts(p, entryMarkPrice, triggerPrice)
	}
	swapAmounts := swap.AmountsByIn(p.InitialCollateralToken, p.CollateralToken, in.InitialCollateralAmount, p.FindSwapPath, p.IsLimit)
	if swapAmounts == nil || !fixedpoint.IsPositive(swapAmounts.AmountOut) {
		return defaultAmounts(p, entryMarkPrice, triggerPrice)
	}

	collateralUsd := new(big.Int).Set(swapAmounts.UsdOut)
	sizeDeltaUsd := new(big.Int).Set(collateralUsd)
	if fixedpoint.IsPositive(p.Leverage) {
		sizeDeltaUsd = fixedpoint.ApplyBPS(sizeDeltaUsd, p.Leverage)
	}

	positionFeeUsd := pricing.PositionFee(p.Market, sizeDeltaUsd)
	impactUsd := pricing.PositionPriceImpact(p.Market, sizeDeltaUsd, p.IsLong)

	sizeDeltaAfterFeesUsd := new(big.Int).Sub(sizeDeltaUsd, positionFeeUsd)
	sizeDeltaAfterFeesUsd.Add(sizeDeltaAfterFeesUsd, impactUsd)

	acceptable := acceptablePrice(p, entryMarkPrice, sizeDeltaUsd, impactUsd)

	return &model.IncreasePositionAmounts{
		InitialCollateralAmount:      new(big.Int).Set(swapAmounts.AmountIn),
		InitialCollateralUsd:         new(big.Int).Set(swapAmounts.UsdIn),
		CollateralAmount:             new(big.Int).Set(swapAmounts.AmountOut),
		CollateralUsd:                collateralUsd,
		CollateralUsdAfterFees:       new(big.Int).Sub(collateralUsd, positionFeeUsd),
		SizeDeltaUsd:                 sizeDeltaUsd,
		SizeDeltaInTokens:            tokenAmount(sizeDeltaUsd, p.IndexToken, entryMarkPrice),
		SizeDeltaAfterFeesUsd:        sizeDeltaAfterFeesUsd,
		SizeDeltaAfterFeesInTokens:   tokenAmount(sizeDeltaAfterFeesUsd, p.IndexToken, entryMarkPrice),
		PositionFeeUsd:               positionFeeUsd,
		PositionPriceImpactDeltaUsd:  impactUsd,
		AcceptablePrice:              acceptable.AcceptablePrice,
		AcceptablePriceImpactBps:     acceptable.AcceptablePriceImpactBps,
		AcceptablePriceAfterSlippage: pricing.ApplySlippage(p.AllowedSlippage, acceptable.AcceptablePrice, true, p.IsLong),
		EntryMarkPrice:               new(big.Int).Set(entryMarkPrice),
		TriggerPrice:                 fixedpoint.Copy(triggerPrice),
		SwapPathStats:                swapAmounts.SwapPathStats,
	}
}

func byIndex(p Params, in ByIndexAmount, entryMarkPrice, triggerPrice *big.Int) *model.IncreasePositionAmounts {
	if !fixedpoint.IsPositive(in.IndexTokenAmount) {
		return defaultAmounts(p, entryMarkPrice, triggerPrice)
	}

	sizeDeltaAfterFeesInTokens := new(big.Int).Set(in.IndexTokenAmount)
	sizeDeltaAfterFeesUsd := fixedpoint.ConvertToUSD(sizeDeltaAfterFeesInTokens, p.IndexToken.Decimals, entryMarkPrice)

	grossSizeUsd := grossUpForFee(p.Market, sizeDeltaAfterFeesUsd)
	if grossSizeUsd == nil {
		return defaultAmounts(p, entryMarkPrice, triggerPrice)
	}
	positionFeeUsd := new(big.Int).Sub(grossSizeUsd, sizeDeltaAfterFeesUsd)

	// A negative impact is a cost and raises the size needed to end up
	// with the requested post-fee size.
	impactUsd := pricing.PositionPriceImpact(p.Market, grossSizeUsd, p.IsLong)
	sizeDeltaUsd := new(big.Int).Sub(grossSizeUsd, impactUsd)

	acceptable := acceptablePrice(p, entryMarkPrice, sizeDeltaUsd, impactUsd)

	collateralUsd := new(big.Int).Set(sizeDeltaUsd)
	if fixedpoint.IsPositive(p.Leverage) {
		collateralUsd = fixedpoint.MulDiv(collateralUsd, fixedpoint.BPS(), p.Leverage)
	}

	collateralAmount := fixedpoint.Zero()
	if p.CollateralToken != nil {
		collateralAmount = fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(
			collateralUsd, p.CollateralToken.Decimals, p.CollateralToken.Prices.MaxPrice))
	}

	initialCollateralAmount := fixedpoint.Zero()
	initialCollateralUsd := fixedpoint.Zero()
	var swapPathStats *model.SwapPathStats
	if p.InitialCollateralToken != nil && p.CollateralToken != nil && p.FindSwapPath != nil {
		swapAmounts := swap.AmountsByOut(p.InitialCollateralToken, p.CollateralToken, collateralAmount, p.FindSwapPath, p.IsLimit)
		if swapAmounts != nil {
			initialCollateralAmount = new(big.Int).Set(swapAmounts.AmountIn)
			initialCollateralUsd = new(big.Int).Set(swapAmounts.UsdIn)
			swapPathStats = swapAmounts.SwapPathStats
		}
	}

	return &model.IncreasePositionAmounts{
		InitialCollateralAmount:      initialCollateralAmount,
		InitialCollateralUsd:         initialCollateralUsd,
		CollateralAmount:             collateralAmount,
		CollateralUsd:                collateralUsd,
		CollateralUsdAfterFees:       new(big.Int).Set(collateralUsd),
		SizeDeltaUsd:                 sizeDeltaUsd,
		SizeDeltaInTokens:            tokenAmount(sizeDeltaUsd, p.IndexToken, entryMarkPrice),
		SizeDeltaAfterFeesUsd:        sizeDeltaAfterFeesUsd,
		SizeDeltaAfterFeesInTokens:   sizeDeltaAfterFeesInTokens,
		PositionFeeUsd:               positionFeeUsd,
		PositionPriceImpactDeltaUsd:  impactUsd,
		AcceptablePrice:              acceptable.AcceptablePrice,
		AcceptablePriceImpactBps:     acceptable.AcceptablePriceImpactBps,
		AcceptablePriceAfterSlippage: pricing.ApplySlippage(p.AllowedSlippage, acceptable.AcceptablePrice, true, p.IsLong),
		EntryMarkPrice:               new(big.Int).Set(entryMarkPrice),
		TriggerPrice:                 fixedpoint.Copy(triggerPrice),
		SwapPathStats:                swapPathStats,
	}
}

// grossUpForFee returns the size whose position fee leaves exactly
// afterFeesUsd: afterFees * 10^30 / (10^30 - feeFactor). Returns nil when
// the fee factor consumes the whole size.
func grossUpForFee(m *model.MarketInfo, afterFeesUsd *big.Int) *big.Int {
	if m == nil || m.PositionFeeFactor == nil || m.PositionFeeFactor.Sign() == 0 {
		return new(big.Int).Set(afterFeesUsd)
	}
	remaining := new(big.Int).Sub(fixedpoint.Precision(), m.PositionFeeFactor)
	if remaining.Sign() <= 0 {
		return nil
	}
	return fixedpoint.MulDiv(afterFeesUsd, fixedpoint.Precision(), remaining)
}

// acceptablePrice applies the caller's tolerance for limit orders and the
// realized impact for market orders.
func acceptablePrice(p Params, entryMarkPrice, sizeDeltaUsd, impactUsd *big.Int) pricing.AcceptablePriceResult {
	ap := pricing.AcceptablePriceParams{
		IsIncrease:   true,
		IsLong:       p.IsLong,
		IndexPrice:   entryMarkPrice,
		SizeDeltaUsd: sizeDeltaUsd,
	}
	if p.IsLimit {
		ap.AcceptablePriceImpactBps = p.AcceptablePriceImpactBps
	} else {
		ap.PriceImpactDeltaUsd = impactUsd
	}
	res := pricing.AcceptablePrice(ap)
	if res.AcceptablePrice == nil {
		res.AcceptablePrice = new(big.Int).Set(entryMarkPrice)
	}
	return res
}

func tokenAmount(usd *big.Int, t *model.Token, price *big.Int) *big.Int {
	return fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(usd, t.Decimals, price))
}

// defaultAmounts is the zero bundle: no size, no collateral, priced at the
// entry mark price.
func defaultAmounts(p Params, entryMarkPrice, triggerPrice *big.Int) *model.IncreasePositionAmounts {
	bps := fixedpoint.Zero()
	if p.IsLimit && p.AcceptablePriceImpactBps != nil {
		bps = new(big.Int).Set(p.AcceptablePriceImpactBps)
	}
	return &model.IncreasePositionAmounts{
		InitialCollateralAmount:      fixedpoint.Zero(),
		InitialCollateralUsd:         fixedpoint.Zero(),
		CollateralAmount:             fixedpoint.Zero(),
		CollateralUsd:                fixedpoint.Zero(),
		CollateralUsdAfterFees:       fixedpoint.Zero(),
		SizeDeltaUsd:                 fixedpoint.Zero(),
		SizeDeltaInTokens:            fixedpoint.Zero(),
		SizeDeltaAfterFeesUsd:        fixedpoint.Zero(),
		SizeDeltaAfterFeesInTokens:   fixedpoint.Zero(),
		PositionFeeUsd:               fixedpoint.Zero(),
		PositionPriceImpactDeltaUsd:  fixedpoint.Zero(),
		AcceptablePrice:              new(big.Int).Set(entryMarkPrice),
		AcceptablePriceImpactBps:     bps,
		AcceptablePriceAfterSlippage: new(big.Int).Set(entryMarkPrice),
		EntryMarkPrice:               new(big.Int).Set(entryMarkPrice),
		TriggerPrice:                 fixedpoint.Copy(triggerPrice),
	}
}
