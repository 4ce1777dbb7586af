// Package swap converts between token amounts on either side of a swap
// route. Route discovery is delegated to a PathFinder.
package swap

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// FindPathOpts tunes a path search.
type FindPathOpts struct {
	// DisablePriceImpact prices the route without swap impact. Limit orders
	// settle at execution time, so previews for them leave impact out.
	DisablePriceImpact bool
}

// PathFinder routes usdIn from a fixed input token to a fixed output token.
// It returns nil when no route exists.
type PathFinder func(usdIn *big.Int, opts FindPathOpts) *model.SwapPathStats

// AmountsByIn computes what amountIn of tokenIn buys of tokenOut. Returns nil
// when either token has no prices loaded.
func AmountsByIn(tokenIn, tokenOut *model.Token, amountIn *big.Int, find PathFinder, isLimit bool) *model.SwapAmounts {
	if !tokenIn.HasPrices() || !tokenOut.HasPrices() || amountIn == nil {
		return nil
	}
	priceIn := tokenIn.Prices.MinPrice
	priceOut := tokenOut.Prices.MaxPrice
	usdIn := fixedpoint.ConvertToUSD(amountIn, tokenIn.Decimals, priceIn)

	res := &model.SwapAmounts{
		AmountIn:  new(big.Int).Set(amountIn),
		UsdIn:     usdIn,
		AmountOut: fixedpoint.Zero(),
		UsdOut:    fixedpoint.Zero(),
		PriceIn:   new(big.Int).Set(priceIn),
		PriceOut:  new(big.Int).Set(priceOut),
	}
	if amountIn.Sign() <= 0 {
		return res
	}

	if sameToken(tokenIn, tokenOut) {
		res.AmountOut = new(big.Int).Set(amountIn)
		res.UsdOut = new(big.Int).Set(usdIn)
		return res
	}

	stats := find(usdIn, FindPathOpts{DisablePriceImpact: isLimit})
	if stats == nil {
		return res
	}
	res.SwapPathStats = stats
	if stats.AmountOut != nil && stats.AmountOut.Sign() > 0 {
		res.AmountOut = new(big.Int).Set(stats.AmountOut)
		res.UsdOut = fixedpoint.Copy(stats.UsdOut)
	}
	return res
}

// AmountsByOut computes how much tokenIn is needed to receive amountOut of
// tokenOut. The route is priced once for the target USD value and the input
// is scaled by the ratio the route achieved.
func AmountsByOut(tokenIn, tokenOut *model.Token, amountOut *big.Int, find PathFinder, isLimit bool) *model.SwapAmounts {
	if !tokenIn.HasPrices() || !tokenOut.HasPrices() || amountOut == nil {
		return nil
	}
	priceIn := tokenIn.Prices.MinPrice
	priceOut := tokenOut.Prices.MaxPrice
	usdOut := fixedpoint.ConvertToUSD(amountOut, tokenOut.Decimals, priceOut)

	res := &model.SwapAmounts{
		AmountIn:  fixedpoint.Zero(),
		UsdIn:     fixedpoint.Zero(),
		AmountOut: new(big.Int).Set(amountOut),
		UsdOut:    usdOut,
		PriceIn:   new(big.Int).Set(priceIn),
		PriceOut:  new(big.Int).Set(priceOut),
	}
	if amountOut.Sign() <= 0 {
		return res
	}

	if sameToken(tokenIn, tokenOut) {
		res.AmountIn = new(big.Int).Set(amountOut)
		res.UsdIn = new(big.Int).Set(usdOut)
		return res
	}

	stats := find(usdOut, FindPathOpts{DisablePriceImpact: isLimit})
	if stats == nil || !fixedpoint.IsPositive(stats.UsdOut) {
		return res
	}
	res.SwapPathStats = stats
	res.UsdIn = fixedpoint.MulDiv(usdOut, usdOut, stats.UsdOut)
	res.AmountIn = fixedpoint.OrZero(fixedpoint.ConvertToTokenAmount(res.UsdIn, tokenIn.Decimals, priceIn))
	return res
}

func sameToken(a, b *model.Token) bool {
	return model.NormalizeAddress(a.Address) == model.NormalizeAddress(b.Address)
}
