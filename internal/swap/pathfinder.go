package swap

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/pricing"
)

// DirectPathFinder routes through a single market whose collateral pair is
// exactly {tokenIn, tokenOut}. When several markets qualify the one with the
// best output wins. Multi-hop routing is out of its reach.
func DirectPathFinder(snap *model.Snapshot, tokenInAddress, tokenOutAddress string) PathFinder {
	return func(usdIn *big.Int, opts FindPathOpts) *model.SwapPathStats {
		tokenIn, okIn := snap.Token(tokenInAddress)
		tokenOut, okOut := snap.Token(tokenOutAddress)
		if !okIn || !okOut || !fixedpoint.IsPositive(usdIn) {
			return nil
		}

		var best *model.SwapPathStats
		for _, m := range snap.Markets() {
			if m.IsDisabled || m.IsSameCollaterals() || !connects(m, tokenIn.Address, tokenOut.Address) {
				continue
			}
			stats := swapStats(m, tokenIn, tokenOut, usdIn, opts)
			if stats == nil {
				continue
			}
			if best == nil || stats.UsdOut.Cmp(best.UsdOut) > 0 {
				best = stats
			}
		}
		return best
	}
}

func connects(m *model.MarketInfo, a, b string) bool {
	return (m.LongTokenAddress == a && m.ShortTokenAddress == b) ||
		(m.LongTokenAddress == b && m.ShortTokenAddress == a)
}

func swapStats(m *model.MarketInfo, tokenIn, tokenOut *model.Token, usdIn *big.Int, opts FindPathOpts) *model.SwapPathStats {
	if !tokenIn.HasPrices() || !tokenOut.HasPrices() {
		return nil
	}
	feeUsd := fixedpoint.Zero()
	if m.SwapFeeFactor != nil {
		feeUsd = fixedpoint.ApplyFactor(usdIn, m.SwapFeeFactor)
	}
	afterFees := new(big.Int).Sub(usdIn, feeUsd)

	impact := fixedpoint.Zero()
	if !opts.DisablePriceImpact {
		impact = pricing.SwapPriceImpact(m, tokenIn.Address, afterFees, afterFees)
	}

	usdOut := new(big.Int).Add(afterFees, impact)
	if usdOut.Sign() < 0 {
		usdOut.SetInt64(0)
	}
	amountOut := fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(usdOut, tokenOut.Decimals, tokenOut.Prices.MaxPrice))

	step := model.SwapStep{
		MarketAddress:       m.MarketTokenAddress,
		TokenInAddress:      tokenIn.Address,
		TokenOutAddress:     tokenOut.Address,
		IsLong:              tokenIn.Address == m.LongTokenAddress,
		SwapFeeUsd:          feeUsd,
		SwapFeeAmount:       fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(feeUsd, tokenIn.Decimals, tokenIn.Prices.MinPrice)),
		PriceImpactDeltaUsd: impact,
		AmountIn:            fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(usdIn, tokenIn.Decimals, tokenIn.Prices.MinPrice)),
		AmountOut:           amountOut,
		UsdIn:               new(big.Int).Set(usdIn),
		UsdOut:              usdOut,
	}

	return &model.SwapPathStats{
		SwapPath:                     []string{m.MarketTokenAddress},
		SwapSteps:                    []model.SwapStep{step},
		TokenInAddress:               tokenIn.Address,
		TokenOutAddress:              tokenOut.Address,
		TotalSwapPriceImpactDeltaUsd: new(big.Int).Set(impact),
		TotalSwapFeeUsd:              new(big.Int).Set(feeUsd),
		TotalFeesDeltaUsd:            new(big.Int).Sub(impact, feeUsd),
		UsdOut:                       new(big.Int).Set(usdOut),
		AmountOut:                    new(big.Int).Set(amountOut),
	}
}
