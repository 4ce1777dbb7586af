// Package pricing implements the price rules used when previewing orders
// against a synthetics market:
//   - mark price selection (bid or ask depending on trade direction)
//   - slippage applied against the trader
//   - acceptable price from realized impact or a caller tolerance
//   - position fees and open-interest price impact
//
// All values are fixed-point *big.Int. The impact curve for non-integer
// exponents evaluates the fractional power with shopspring/decimal, so no
// step goes through floating point.
package pricing

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// ShouldUseMaxPrice reports whether the ask side is the worst case for the
// trader: opening a long or closing a short.
func ShouldUseMaxPrice(isIncrease, isLong bool) bool {
	if isIncrease {
		return isLong
	}
	return !isLong
}

// MarkPrice picks the side of the price pair the order executes against.
// Returns nil when that side is not loaded.
func MarkPrice(prices model.TokenPrices, isIncrease, isLong bool) *big.Int {
	p := prices.MinPrice
	if ShouldUseMaxPrice(isIncrease, isLong) {
		p = prices.MaxPrice
	}
	if !fixedpoint.IsPositive(p) {
		return nil
	}
	return new(big.Int).Set(p)
}

// ApplySlippage moves price against the trader by allowedSlippage basis
// points: up for increase-long and decrease-short, down otherwise.
func ApplySlippage(allowedSlippage int64, price *big.Int, isIncrease, isLong bool) *big.Int {
	if price == nil {
		return nil
	}
	bps := big.NewInt(fixedpoint.BasisPointsDivisor - allowedSlippage)
	if ShouldUseMaxPrice(isIncrease, isLong) {
		bps = big.NewInt(fixedpoint.BasisPointsDivisor + allowedSlippage)
	}
	return fixedpoint.ApplyBPS(price, bps)
}

// AcceptablePriceParams are the inputs of AcceptablePrice. Exactly one of
// PriceImpactDeltaUsd (market orders) and AcceptablePriceImpactBps (limit
// orders) is normally set; the bps tolerance wins when both are.
type AcceptablePriceParams struct {
	IsIncrease               bool
	IsLong                   bool
	IndexPrice               *big.Int
	SizeDeltaUsd             *big.Int
	PriceImpactDeltaUsd      *big.Int
	AcceptablePriceImpactBps *big.Int
}

// AcceptablePriceResult is the worst execution price and its distance from
// the index price in basis points. Negative bps are unfavourable.
type AcceptablePriceResult struct {
	AcceptablePrice          *big.Int
	AcceptablePriceImpactBps *big.Int
}

// AcceptablePrice derives the worst execution price the order accepts.
func AcceptablePrice(p AcceptablePriceParams) AcceptablePriceResult {
	res := AcceptablePriceResult{
		AcceptablePrice:          fixedpoint.Copy(p.IndexPrice),
		AcceptablePriceImpactBps: fixedpoint.Zero(),
	}
	if !fixedpoint.IsPositive(p.SizeDeltaUsd) || p.IndexPrice == nil || p.IndexPrice.Sign() == 0 {
		return res
	}

	flip := ShouldUseMaxPrice(p.IsIncrease, p.IsLong)

	if p.AcceptablePriceImpactBps != nil && p.AcceptablePriceImpactBps.Sign() != 0 {
		delta := fixedpoint.ApplyBPS(p.IndexPrice, p.AcceptablePriceImpactBps)
		if flip {
			delta.Neg(delta)
		}
		res.AcceptablePrice = new(big.Int).Sub(p.IndexPrice, delta)
		res.AcceptablePriceImpactBps = new(big.Int).Set(p.AcceptablePriceImpactBps)
		return res
	}

	if p.PriceImpactDeltaUsd != nil {
		impact := new(big.Int).Set(p.PriceImpactDeltaUsd)
		if flip {
			impact.Neg(impact)
		}
		adjusted := new(big.Int).Add(p.SizeDeltaUsd, impact)
		res.AcceptablePrice = fixedpoint.MulDiv(p.IndexPrice, adjusted, p.SizeDeltaUsd)

		delta := new(big.Int).Sub(p.IndexPrice, res.AcceptablePrice)
		if !flip {
			delta.Neg(delta)
		}
		res.AcceptablePriceImpactBps = fixedpoint.ToBPS(delta, p.IndexPrice)
	}
	return res
}

// PositionFee is the fee charged on a size delta.
func PositionFee(m *model.MarketInfo, sizeDeltaUsd *big.Int) *big.Int {
	if m == nil || sizeDeltaUsd == nil || m.PositionFeeFactor == nil {
		return fixedpoint.Zero()
	}
	return fixedpoint.ApplyFactor(sizeDeltaUsd, m.PositionFeeFactor)
}

// PositionPriceImpact is the signed USD impact of adding sizeDeltaUsd to one
// side of the market's open interest. Positive values favour the trader and
// are capped by MaxPositionImpactFactorPositive when it is configured.
func PositionPriceImpact(m *model.MarketInfo, sizeDeltaUsd *big.Int, isLong bool) *big.Int {
	if m == nil || !fixedpoint.IsPositive(sizeDeltaUsd) {
		return fixedpoint.Zero()
	}
	curLong := fixedpoint.OrZero(m.LongInterestUsd)
	curShort := fixedpoint.OrZero(m.ShortInterestUsd)
	nextLong, nextShort := new(big.Int).Set(curLong), new(big.Int).Set(curShort)
	if isLong {
		nextLong.Add(nextLong, sizeDeltaUsd)
	} else {
		nextShort.Add(nextShort, sizeDeltaUsd)
	}

	impact := ImpactUsd(ImpactParams{
		CurrentLongUsd:  curLong,
		CurrentShortUsd: curShort,
		NextLongUsd:     nextLong,
		NextShortUsd:    nextShort,
		FactorPositive:  m.PositionImpactFactorPositive,
		FactorNegative:  m.PositionImpactFactorNegative,
		ExponentFactor:  m.PositionImpactExponentFactor,
	})

	if impact.Sign() > 0 && fixedpoint.IsPositive(m.MaxPositionImpactFactorPositive) {
		maxImpact := fixedpoint.ApplyFactor(sizeDeltaUsd, m.MaxPositionImpactFactorPositive)
		impact = fixedpoint.Min(impact, maxImpact)
	}
	return impact
}

// ImpactParams describes a change of a two-sided balance (open interest or
// pool value) in USD.
type ImpactParams struct {
	CurrentLongUsd  *big.Int
	CurrentShortUsd *big.Int
	NextLongUsd     *big.Int
	NextShortUsd    *big.Int
	FactorPositive  *big.Int
	FactorNegative  *big.Int
	ExponentFactor  *big.Int
}

// ImpactUsd prices a rebalance of a two-sided balance. Moves that shrink the
// imbalance earn positive impact; moves that grow it pay negative impact.
// A move that flips the heavier side nets the positive impact of removing
// the old imbalance against the negative impact of the new one.
func ImpactUsd(p ImpactParams) *big.Int {
	if p.NextLongUsd.Sign() < 0 || p.NextShortUsd.Sign() < 0 {
		return fixedpoint.Zero()
	}
	curDiff := new(big.Int).Abs(new(big.Int).Sub(p.CurrentLongUsd, p.CurrentShortUsd))
	nextDiff := new(big.Int).Abs(new(big.Int).Sub(p.NextLongUsd, p.NextShortUsd))

	sameSide := (p.CurrentLongUsd.Cmp(p.CurrentShortUsd) < 0) == (p.NextLongUsd.Cmp(p.NextShortUsd) < 0)
	if sameSide {
		positive := nextDiff.Cmp(curDiff) < 0
		factor := p.FactorNegative
		if positive {
			factor = p.FactorPositive
		}
		cur := ApplyImpactFactor(curDiff, factor, p.ExponentFactor)
		next := ApplyImpactFactor(nextDiff, factor, p.ExponentFactor)
		delta := new(big.Int).Abs(new(big.Int).Sub(cur, next))
		if !positive {
			delta.Neg(delta)
		}
		return delta
	}

	positive := ApplyImpactFactor(curDiff, p.FactorPositive, p.ExponentFactor)
	negative := ApplyImpactFactor(nextDiff, p.FactorNegative, p.ExponentFactor)
	delta := new(big.Int).Abs(new(big.Int).Sub(positive, negative))
	if positive.Cmp(negative) <= 0 {
		delta.Neg(delta)
	}
	return delta
}

// fracPowDigits is the number of decimal places carried through the
// ln/exp evaluation of a fractional exponent.
const fracPowDigits = 48

// ApplyImpactFactor returns factor * (diff / 10^30)^exponent scaled back to
// 30 decimals. The integral part of the exponent is applied exactly; the
// fractional part goes through decimal ln/exp at fracPowDigits places.
func ApplyImpactFactor(diffUsd, factor, exponentFactor *big.Int) *big.Int {
	if diffUsd == nil || factor == nil || factor.Sign() == 0 || diffUsd.Sign() == 0 {
		return fixedpoint.Zero()
	}
	exp := exponentFactor
	if exp == nil || exp.Sign() == 0 {
		exp = fixedpoint.Precision()
	}

	precision := fixedpoint.Precision()
	whole, rem := new(big.Int).QuoRem(exp, precision, new(big.Int))
	if exp.Sign() < 0 || !whole.IsInt64() {
		return fixedpoint.Zero()
	}

	powered := fixedpoint.Precision()
	if n := whole.Int64(); n >= 1 {
		powered.Set(diffUsd)
		for i := int64(1); i < n; i++ {
			powered.Mul(powered, diffUsd)
			powered.Quo(powered, precision)
		}
	}
	if rem.Sign() != 0 {
		if diffUsd.Sign() < 0 {
			return fixedpoint.Zero()
		}
		base := fixedpoint.ToDecimal(diffUsd, fixedpoint.USDDecimals)
		frac, err := base.PowWithPrecision(fixedpoint.ToDecimal(rem, fixedpoint.USDDecimals), fracPowDigits)
		if err != nil {
			return fixedpoint.Zero()
		}
		powered = fixedpoint.FromDecimal(fixedpoint.ToDecimal(powered, fixedpoint.USDDecimals).Mul(frac), fixedpoint.USDDecimals)
	}
	return fixedpoint.ApplyFactor(powered, factor)
}

// SwapPriceImpact is the signed USD impact of swapping usdIn of tokenIn into
// the market's pool for usdOut of its other collateral token. Pool values
// are taken at mid price.
func SwapPriceImpact(m *model.MarketInfo, tokenInAddress string, usdIn, usdOut *big.Int) *big.Int {
	if m == nil || m.IsSameCollaterals() {
		return fixedpoint.Zero()
	}
	curLong := poolUsd(m.LongPoolAmount, m.LongToken)
	curShort := poolUsd(m.ShortPoolAmount, m.ShortToken)
	nextLong, nextShort := new(big.Int).Set(curLong), new(big.Int).Set(curShort)

	if model.NormalizeAddress(tokenInAddress) == m.LongTokenAddress {
		nextLong.Add(nextLong, usdIn)
		nextShort.Sub(nextShort, usdOut)
	} else {
		nextShort.Add(nextShort, usdIn)
		nextLong.Sub(nextLong, usdOut)
	}

	return ImpactUsd(ImpactParams{
		CurrentLongUsd:  curLong,
		CurrentShortUsd: curShort,
		NextLongUsd:     nextLong,
		NextShortUsd:    nextShort,
		FactorPositive:  m.SwapImpactFactorPositive,
		FactorNegative:  m.SwapImpactFactorNegative,
		ExponentFactor:  m.SwapImpactExponentFactor,
	})
}

// MidPrice is the average of the bid and ask, or nil when either is missing.
func MidPrice(t *model.Token) *big.Int {
	if !t.HasPrices() {
		return nil
	}
	mid := new(big.Int).Add(t.Prices.MinPrice, t.Prices.MaxPrice)
	return mid.Quo(mid, big.NewInt(2))
}

func poolUsd(amount *big.Int, t *model.Token) *big.Int {
	if amount == nil || t == nil {
		return fixedpoint.Zero()
	}
	usd := fixedpoint.ConvertToUSD(amount, t.Decimals, MidPrice(t))
	return fixedpoint.OrZero(usd)
}
