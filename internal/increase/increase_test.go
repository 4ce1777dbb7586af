package increase

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/pricing"
	"github.com/atmx/synthetics-engine/internal/swap"
)

const (
	wethAddr   = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
	usdcAddr   = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	arbAddr    = "0x912CE59144191C1204E64559FE8253a0e49E6548"
	marketAddr = "0x70d95587d40A2caf56bd97485aB3Eec10Bee6336"
)

func usd(n int64) *big.Int { return fixedpoint.USD(n) }

// testEnv is an ETH/USD market with a 0.1% position fee and no price impact.
type testEnv struct {
	snap   *model.Snapshot
	market *model.MarketInfo
	weth   *model.Token
	usdc   *model.Token
	arb    *model.Token
}

// newTestEnv builds the fixture snapshot. Each tweak edits the ETH/USD
// market before it is resolved, so swap routes see the same parameters.
func newTestEnv(t *testing.T, tweaks ...func(*model.Market)) *testEnv {
	t.Helper()
	tokens := []model.Token{
		{Address: wethAddr, Symbol: "WETH", Decimals: 18,
			Prices: model.TokenPrices{MinPrice: usd(2000), MaxPrice: usd(2000)}},
		{Address: usdcAddr, Symbol: "USDC", Decimals: 6, IsStable: true,
			Prices: model.TokenPrices{MinPrice: usd(1), MaxPrice: usd(1)}},
		{Address: arbAddr, Symbol: "ARB", Decimals: 18,
			Prices: model.TokenPrices{MinPrice: usd(1), MaxPrice: usd(1)}},
	}
	markets := []model.Market{{
		MarketTokenAddress: marketAddr,
		Name:               "ETH/USD",
		IndexTokenAddress:  wethAddr,
		LongTokenAddress:   wethAddr,
		ShortTokenAddress:  usdcAddr,
		PositionFeeFactor:  fixedpoint.ExpandDecimals(1, 27),
		MaxLeverage:        big.NewInt(1_000_000),
	}}
	for _, tweak := range tweaks {
		tweak(&markets[0])
	}
	snap := model.NewSnapshot(42161, tokens, markets)
	env := &testEnv{snap: snap}
	env.market, _ = snap.Market(marketAddr)
	env.weth, _ = snap.Token(wethAddr)
	env.usdc, _ = snap.Token(usdcAddr)
	env.arb, _ = snap.Token(arbAddr)
	if env.market == nil || env.weth == nil || env.usdc == nil || env.arb == nil {
		t.Fatal("test snapshot did not resolve")
	}
	return env
}

func (e *testEnv) params(initial *model.Token, amount AmountInput, isLong bool) Params {
	return Params{
		Market:                 e.market,
		InitialCollateralToken: initial,
		CollateralToken:        e.usdc,
		IndexToken:             e.weth,
		Amount:                 amount,
		IsLong:                 isLong,
		Leverage:               big.NewInt(20000), // 2x
		FindSwapPath:           swap.DirectPathFinder(e.snap, initial.Address, e.usdc.Address),
	}
}

func TestComputeIncreaseAmounts_ByCollateral(t *testing.T) {
	env := newTestEnv(t)
	p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(1000, 6)}, true)

	got := ComputeIncreaseAmounts(p)
	if got == nil {
		t.Fatal("expected amounts")
	}

	checks := []struct {
		name string
		got  *big.Int
		want *big.Int
	}{
		{"initial collateral usd", got.InitialCollateralUsd, usd(1000)},
		{"collateral usd", got.CollateralUsd, usd(1000)},
		{"size delta usd", got.SizeDeltaUsd, usd(2000)},
		{"position fee", got.PositionFeeUsd, usd(2)},
		{"size after fees", got.SizeDeltaAfterFeesUsd, usd(1998)},
		{"collateral after fees", got.CollateralUsdAfterFees, usd(998)},
		{"size in tokens", got.SizeDeltaInTokens, fixedpoint.ExpandDecimals(1, 18)},
		{"size after fees in tokens", got.SizeDeltaAfterFeesInTokens, fixedpoint.MustParse("999000000000000000")},
		{"acceptable price", got.AcceptablePrice, usd(2000)},
	}
	for _, c := range checks {
		if c.got.Cmp(c.want) != 0 {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
}

func TestComputeIncreaseAmounts_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(1234, 6)}, false)
	p.AllowedSlippage = 30

	a, err := json.Marshal(ComputeIncreaseAmounts(p))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(ComputeIncreaseAmounts(p))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("identical inputs produced different bundles:\n%s\n%s", a, b)
	}
}

func TestComputeIncreaseAmounts_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	collateral := fixedpoint.ExpandDecimals(1000, 6)

	forward := ComputeIncreaseAmounts(env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: collateral}, true))
	if forward == nil {
		t.Fatal("expected forward amounts")
	}

	back := ComputeIncreaseAmounts(env.params(env.usdc, ByIndexAmount{IndexTokenAmount: forward.SizeDeltaAfterFeesInTokens}, true))
	if back == nil {
		t.Fatal("expected reverse amounts")
	}

	diff := new(big.Int).Sub(back.InitialCollateralAmount, collateral)
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Errorf("round trip drifted: started with %s, got %s", collateral, back.InitialCollateralAmount)
	}
	if back.SizeDeltaUsd.Cmp(forward.SizeDeltaUsd) != 0 {
		t.Errorf("expected size %s, got %s", forward.SizeDeltaUsd, back.SizeDeltaUsd)
	}
}

// withImpact adds a 0.05% swap fee, pools and open interest that are out
// of balance, and quadratic impact on both swaps and positions.
func withImpact(m *model.Market) {
	m.SwapFeeFactor = fixedpoint.ExpandDecimals(5, 26)
	m.SwapImpactFactorPositive = fixedpoint.ExpandDecimals(1, 21) // 1e-9
	m.SwapImpactFactorNegative = fixedpoint.ExpandDecimals(1, 21)
	m.SwapImpactExponentFactor = fixedpoint.ExpandDecimals(2, 30)
	m.LongPoolAmount = fixedpoint.ExpandDecimals(500, 18)       // $1,000,000 of WETH
	m.ShortPoolAmount = fixedpoint.ExpandDecimals(1_200_000, 6) // $1,200,000 of USDC
	m.LongInterestUsd = usd(1_000_000)
	m.ShortInterestUsd = usd(500_000)
	m.PositionImpactFactorPositive = fixedpoint.ExpandDecimals(1, 21)
	m.PositionImpactFactorNegative = fixedpoint.ExpandDecimals(1, 21)
	m.PositionImpactExponentFactor = fixedpoint.ExpandDecimals(2, 30)
}

// withinPPM reports whether got is within tol parts per million of want.
func withinPPM(got, want *big.Int, tol int64) bool {
	diff := new(big.Int).Abs(new(big.Int).Sub(got, want))
	diff.Mul(diff, big.NewInt(1_000_000))
	bound := new(big.Int).Mul(new(big.Int).Abs(want), big.NewInt(tol))
	return diff.Cmp(bound) <= 0
}

func TestComputeIncreaseAmounts_RoundTripAcrossSwap(t *testing.T) {
	env := newTestEnv(t, withImpact)

	cases := []struct {
		name       string
		pay        *model.Token
		collateral *model.Token
		amount     *big.Int
		isLong     bool
	}{
		{"weth to usdc long", env.weth, env.usdc, fixedpoint.MustParse("500000000000000000"), true},
		{"weth to usdc short", env.weth, env.usdc, fixedpoint.MustParse("500000000000000000"), false},
		{"usdc to weth long", env.usdc, env.weth, fixedpoint.ExpandDecimals(1000, 6), true},
		{"usdc to weth short", env.usdc, env.weth, fixedpoint.ExpandDecimals(1000, 6), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			params := func(amount AmountInput) Params {
				p := env.params(c.pay, amount, c.isLong)
				p.CollateralToken = c.collateral
				p.FindSwapPath = swap.DirectPathFinder(env.snap, c.pay.Address, c.collateral.Address)
				return p
			}

			forward := ComputeIncreaseAmounts(params(ByCollateralAmount{InitialCollateralAmount: c.amount}))
			if forward == nil || forward.SwapPathStats == nil {
				t.Fatalf("expected a swapped forward bundle, got %+v", forward)
			}
			if forward.SwapPathStats.TotalSwapFeeUsd.Sign() <= 0 {
				t.Errorf("expected a swap fee, got %s", forward.SwapPathStats.TotalSwapFeeUsd)
			}
			if forward.PositionPriceImpactDeltaUsd.Sign() == 0 {
				t.Error("expected nonzero position impact")
			}

			back := ComputeIncreaseAmounts(params(ByIndexAmount{IndexTokenAmount: forward.SizeDeltaAfterFeesInTokens}))
			if back == nil {
				t.Fatal("expected reverse amounts")
			}
			if !withinPPM(back.InitialCollateralAmount, c.amount, 10) {
				t.Errorf("collateral drifted: started with %s, got %s", c.amount, back.InitialCollateralAmount)
			}
			if !withinPPM(back.SizeDeltaUsd, forward.SizeDeltaUsd, 10) {
				t.Errorf("size drifted: expected %s, got %s", forward.SizeDeltaUsd, back.SizeDeltaUsd)
			}
		})
	}
}

func TestComputeIncreaseAmounts_MissingMarkPrice(t *testing.T) {
	env := newTestEnv(t)
	unpriced := *env.weth
	unpriced.Prices = model.TokenPrices{}
	p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: big.NewInt(1)}, true)
	p.IndexToken = &unpriced

	if got := ComputeIncreaseAmounts(p); got != nil {
		t.Errorf("expected nil without a mark price, got %+v", got)
	}
}

func TestComputeIncreaseAmounts_NoRouteYieldsZeroBundle(t *testing.T) {
	env := newTestEnv(t)
	// No market connects ARB and USDC.
	p := env.params(env.arb, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(50, 18)}, true)

	got := ComputeIncreaseAmounts(p)
	if got == nil {
		t.Fatal("expected a zero bundle, got nil")
	}
	zeros := map[string]*big.Int{
		"initial collateral amount": got.InitialCollateralAmount,
		"initial collateral usd":    got.InitialCollateralUsd,
		"collateral amount":         got.CollateralAmount,
		"collateral usd":            got.CollateralUsd,
		"collateral after fees":     got.CollateralUsdAfterFees,
		"size delta usd":            got.SizeDeltaUsd,
		"size in tokens":            got.SizeDeltaInTokens,
		"size after fees":           got.SizeDeltaAfterFeesUsd,
		"size after fees in tokens": got.SizeDeltaAfterFeesInTokens,
		"position fee":              got.PositionFeeUsd,
		"price impact":              got.PositionPriceImpactDeltaUsd,
		"acceptable price bps":      got.AcceptablePriceImpactBps,
	}
	for name, v := range zeros {
		if v == nil || v.Sign() != 0 {
			t.Errorf("%s: expected 0, got %v", name, v)
		}
	}
	if got.AcceptablePrice.Cmp(usd(2000)) != 0 || got.AcceptablePriceAfterSlippage.Cmp(usd(2000)) != 0 {
		t.Errorf("expected prices at entry mark, got %s / %s", got.AcceptablePrice, got.AcceptablePriceAfterSlippage)
	}
}

func TestComputeIncreaseAmounts_NonPositiveIndexAmount(t *testing.T) {
	env := newTestEnv(t)
	got := ComputeIncreaseAmounts(env.params(env.usdc, ByIndexAmount{IndexTokenAmount: big.NewInt(0)}, true))
	if got == nil || got.SizeDeltaUsd.Sign() != 0 || got.InitialCollateralAmount.Sign() != 0 {
		t.Errorf("expected zero bundle, got %+v", got)
	}
}

func TestComputeIncreaseAmounts_SlippageAgainstTrader(t *testing.T) {
	env := newTestEnv(t)
	for _, isLong := range []bool{true, false} {
		p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(500, 6)}, isLong)
		p.AllowedSlippage = 50

		got := ComputeIncreaseAmounts(p)
		diff := new(big.Int).Sub(got.AcceptablePriceAfterSlippage, got.AcceptablePrice)
		if isLong && diff.Sign() <= 0 {
			t.Errorf("long: slippage should raise the price, diff %s", diff)
		}
		if !isLong && diff.Sign() >= 0 {
			t.Errorf("short: slippage should lower the price, diff %s", diff)
		}
		if bps := fixedpoint.ToBPS(new(big.Int).Abs(diff), got.AcceptablePrice); bps.Int64() != 50 {
			t.Errorf("expected a 50 bps move, got %s", bps)
		}
	}
}

func TestComputeIncreaseAmounts_LimitOrder(t *testing.T) {
	env := newTestEnv(t)
	p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(1000, 6)}, true)
	p.IsLimit = true
	p.TriggerPrice = usd(1900)
	p.AcceptablePriceImpactBps = big.NewInt(100)

	got := ComputeIncreaseAmounts(p)
	if got.EntryMarkPrice.Cmp(usd(1900)) != 0 || got.TriggerPrice.Cmp(usd(1900)) != 0 {
		t.Errorf("expected trigger price as entry, got %s", got.EntryMarkPrice)
	}
	// 1% tolerance above the trigger for a long.
	if got.AcceptablePrice.Cmp(usd(1919)) != 0 {
		t.Errorf("expected acceptable 1919, got %s", got.AcceptablePrice)
	}
	if got.AcceptablePriceImpactBps.Int64() != 100 {
		t.Errorf("expected tolerance to pass through, got %s", got.AcceptablePriceImpactBps)
	}
}

func TestComputeIncreaseAmounts_MarketOrderAppliesImpact(t *testing.T) {
	env := newTestEnv(t)
	m := *env.market
	m.LongInterestUsd = usd(0)
	m.ShortInterestUsd = usd(0)
	m.PositionImpactFactorNegative = fixedpoint.ExpandDecimals(1, 24) // 1e-6
	m.PositionImpactExponentFactor = fixedpoint.ExpandDecimals(2, 30)

	p := env.params(env.usdc, ByCollateralAmount{InitialCollateralAmount: fixedpoint.ExpandDecimals(1000, 6)}, true)
	p.Market = &m

	got := ComputeIncreaseAmounts(p)
	// 1e-6 * 2000^2 = 4
	wantImpact := new(big.Int).Neg(usd(4))
	if got.PositionPriceImpactDeltaUsd.Cmp(wantImpact) != 0 {
		t.Fatalf("expected impact %s, got %s", wantImpact, got.PositionPriceImpactDeltaUsd)
	}
	if got.SizeDeltaAfterFeesUsd.Cmp(usd(1994)) != 0 {
		t.Errorf("expected size after fees 1994, got %s", got.SizeDeltaAfterFeesUsd)
	}
	want := pricing.AcceptablePrice(pricing.AcceptablePriceParams{
		IsIncrease: true, IsLong: true, IndexPrice: usd(2000),
		SizeDeltaUsd: usd(2000), PriceImpactDeltaUsd: wantImpact,
	})
	if got.AcceptablePrice.Cmp(want.AcceptablePrice) != 0 || got.AcceptablePrice.Cmp(usd(2000)) <= 0 {
		t.Errorf("expected acceptable price above index, got %s", got.AcceptablePrice)
	}
}

func TestMode(t *testing.T) {
	if Mode(ByCollateralAmount{}) != "collateral" || Mode(ByIndexAmount{}) != "index" || Mode(nil) != "unknown" {
		t.Error("unexpected mode names")
	}
}
