package history

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

type actionFixture struct {
	eth, usdc, arb *model.Token
	market         *model.MarketInfo
}

func newActionFixture(t *testing.T) actionFixture {
	t.Helper()
	snap := testSnapshot(t)
	eth, _ := snap.Token(wethAddr)
	usdc, _ := snap.Token(usdcAddr)
	arb, _ := snap.Token(arbAddr)
	market, ok := snap.Market(ethMarket)
	require.True(t, ok)
	return actionFixture{eth: eth, usdc: usdc, arb: arb, market: market}
}

func (f actionFixture) position(orderType model.OrderType, event model.TradeActionType, isLong bool) *model.TradeAction {
	return &model.TradeAction{
		ID:                     "1",
		EventName:              event,
		OrderType:              orderType,
		IsLong:                 isLong,
		Market:                 f.market,
		MarketAddress:          f.market.MarketTokenAddress,
		IndexToken:             f.eth,
		InitialCollateralToken: f.usdc,
		TargetCollateralToken:  f.usdc,
		SizeDeltaUsd:           fixedpoint.USD(1000),
		AcceptablePrice:        fixedpoint.USD(1900),
		ExecutionPrice:         fixedpoint.USD(2100),
	}
}

func (f actionFixture) swap(orderType model.OrderType, event model.TradeActionType) *model.TradeAction {
	return &model.TradeAction{
		ID:                           "2",
		EventName:                    event,
		OrderType:                    orderType,
		InitialCollateralToken:       f.usdc,
		TargetCollateralToken:        f.eth,
		InitialCollateralDeltaAmount: fixedpoint.ExpandDecimals(2000, 6),
		MinOutputAmount:              fixedpoint.ExpandDecimals(1, 18),
		ExecutionAmountOut:           fixedpoint.MustParse("990000000000000000"),
	}
}

func TestDescribeTradeAction_Templates(t *testing.T) {
	f := newActionFixture(t)

	withdraw := f.position(model.MarketDecrease, model.OrderCreated, false)
	withdraw.SizeDeltaUsd = fixedpoint.Zero()
	withdraw.InitialCollateralDeltaAmount = fixedpoint.ExpandDecimals(100, 6)

	deposit := f.position(model.MarketIncrease, model.OrderExecuted, true)
	deposit.SizeDeltaUsd = nil
	deposit.InitialCollateralDeltaAmount = fixedpoint.ExpandDecimals(250, 6)

	tests := []struct {
		name   string
		action *model.TradeAction
		want   string
	}{
		{
			name:   "market increase executed",
			action: f.position(model.MarketIncrease, model.OrderExecuted, true),
			want:   "Increase Long ETH +$1,000.00, Price: $2,100.00",
		},
		{
			name:   "market increase requested",
			action: f.position(model.MarketIncrease, model.OrderCreated, true),
			want:   "Request Increase Long ETH +$1,000.00, Acceptable Price: $1,900.00",
		},
		{
			name:   "market decrease cancelled",
			action: f.position(model.MarketDecrease, model.OrderCancelled, false),
			want:   "Cancel Decrease Short ETH -$1,000.00, Acceptable Price: $1,900.00",
		},
		{
			name:   "collateral withdrawal",
			action: withdraw,
			want:   "Request Withdraw 100.0000 USDC from Short ETH",
		},
		{
			name:   "collateral deposit",
			action: deposit,
			want:   "Deposit 250.0000 USDC into Long ETH",
		},
		{
			name:   "limit increase created",
			action: f.position(model.LimitIncrease, model.OrderCreated, true),
			want:   "Create Order: Increase Long ETH +$1,000.00, ETH Price: < $1,900.00",
		},
		{
			name:   "take profit updated",
			action: f.position(model.LimitDecrease, model.OrderUpdated, false),
			want:   "Update Order: Decrease Short ETH -$1,000.00, ETH Price: < $1,900.00",
		},
		{
			name:   "stop loss executed",
			action: f.position(model.StopLossDecrease, model.OrderExecuted, true),
			want:   "Execute Order: Decrease Long ETH -$1,000.00, ETH Price: $2,100.00",
		},
		{
			name:   "market swap requested",
			action: f.swap(model.MarketSwap, model.OrderCreated),
			want:   "Request Swap 2,000.0000 USDC for 1.0000 ETH",
		},
		{
			name:   "market swap executed",
			action: f.swap(model.MarketSwap, model.OrderExecuted),
			want:   "Execute Swap 2,000.0000 USDC for 0.9900 ETH",
		},
		{
			name:   "limit swap created",
			action: f.swap(model.LimitSwap, model.OrderCreated),
			want:   "Create Order: Swap 2,000.0000 USDC for 1.0000 ETH, Price: 2,000.00 USDC / ETH",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := DescribeTradeAction(tt.action, PositionLimits{})
			require.NotNil(t, msg)
			assert.Equal(t, MessageText, msg.Kind)
			assert.Equal(t, tt.want, msg.Text)
		})
	}
}

func TestDescribeTradeAction_Liquidation(t *testing.T) {
	f := newActionFixture(t)

	limits := PositionLimits{MinCollateralUsd: fixedpoint.USD(1)}
	msg := DescribeTradeAction(f.position(model.Liquidation, model.OrderExecuted, true), limits)
	require.NotNil(t, msg)
	assert.Equal(t, MessageLiquidation, msg.Kind)
	assert.Equal(t, "Liquidated", msg.Label)
	assert.Equal(t, "Long ETH -$1,000.00, Price: $2,100.00", msg.Text)
	assert.Equal(t, "Liquidated Long ETH -$1,000.00, Price: $2,100.00", msg.String())

	require.NotNil(t, msg.Limits)
	assert.Equal(t, fixedpoint.USD(1).String(), msg.Limits.MinCollateralUsd.String())
	// Falls back to the market's 100x.
	assert.Equal(t, "1000000", msg.Limits.MaxLeverage.String())

	limits.MaxLeverage = big.NewInt(500_000)
	msg = DescribeTradeAction(f.position(model.Liquidation, model.OrderExecuted, true), limits)
	require.NotNil(t, msg.Limits)
	assert.Equal(t, "500000", msg.Limits.MaxLeverage.String())

	plain := DescribeTradeAction(f.position(model.MarketIncrease, model.OrderExecuted, true), limits)
	require.NotNil(t, plain)
	assert.Nil(t, plain.Limits)
}

func TestDescribeTradeAction_NoTemplate(t *testing.T) {
	f := newActionFixture(t)

	unknownEvent := f.position(model.MarketIncrease, "OrderSomething", true)
	noIndex := f.position(model.MarketIncrease, model.OrderExecuted, true)
	noIndex.IndexToken = nil
	noTarget := f.swap(model.MarketSwap, model.OrderExecuted)
	noTarget.TargetCollateralToken = nil
	unknownSwapEvent := f.swap(model.LimitSwap, "OrderSomething")

	tests := map[string]*model.TradeAction{
		"nil action":            nil,
		"unknown event":         unknownEvent,
		"missing index token":   noIndex,
		"missing target token":  noTarget,
		"unknown swap event":    unknownSwapEvent,
		"liquidation created":   f.position(model.Liquidation, model.OrderCreated, true),
		"liquidation cancelled": f.position(model.Liquidation, model.OrderCancelled, false),
	}
	for name, action := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, DescribeTradeAction(action, PositionLimits{}))
		})
	}
}

func TestTriggerPricePrefix(t *testing.T) {
	assert.Equal(t, "<", TriggerPricePrefix(model.LimitIncrease, true))
	assert.Equal(t, ">", TriggerPricePrefix(model.LimitIncrease, false))
	assert.Equal(t, ">", TriggerPricePrefix(model.LimitDecrease, true))
	assert.Equal(t, "<", TriggerPricePrefix(model.LimitDecrease, false))
	assert.Equal(t, "<", TriggerPricePrefix(model.StopLossDecrease, true))
	assert.Equal(t, "", TriggerPricePrefix(model.MarketIncrease, true))
}

func TestExchangeRateDisplay(t *testing.T) {
	f := newActionFixture(t)
	half := fixedpoint.MustParse("500000000000000000000000000") // 0.0005

	assert.Equal(t, "2,000.00 USDC / ETH", ExchangeRateDisplay(fixedpoint.USD(2000), f.usdc, f.eth))
	assert.Equal(t, "2,000.00 USDC / ETH", ExchangeRateDisplay(half, f.eth, f.usdc))
	assert.Equal(t, "2,000.0000 ARB / ETH", ExchangeRateDisplay(fixedpoint.USD(2000), f.arb, f.eth))
	assert.Equal(t, "2,000.0000 ARB / ETH", ExchangeRateDisplay(half, f.eth, f.arb))
	assert.Equal(t, fixedpoint.Placeholder, ExchangeRateDisplay(fixedpoint.Zero(), f.usdc, f.eth))
}

func TestTokensRatioByAmounts(t *testing.T) {
	f := newActionFixture(t)

	r := TokensRatioByAmounts(f.eth, f.usdc, fixedpoint.ExpandDecimals(1, 18), fixedpoint.ExpandDecimals(1850, 6))
	assert.Equal(t, f.usdc.Address, r.LargestToken)
	assert.Equal(t, f.eth.Address, r.SmallestToken)
	assert.Equal(t, fixedpoint.USD(1850).String(), r.Ratio.String())

	r = TokensRatioByAmounts(f.eth, f.usdc, fixedpoint.Zero(), fixedpoint.ExpandDecimals(1850, 6))
	assert.Equal(t, "0", r.Ratio.String())
}

func TestBuildTradeRows(t *testing.T) {
	f := newActionFixture(t)

	described := f.position(model.MarketIncrease, model.OrderExecuted, true)
	described.Transaction = model.Transaction{Timestamp: 1700000000, Hash: "0xabc"}
	skipped := f.position(model.MarketIncrease, "OrderSomething", true)

	rows := BuildTradeRows("https://arbiscan.io/", PositionLimits{}, []model.TradeAction{*described, *skipped})
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, int64(1700000000), rows[0].Timestamp)
	assert.Equal(t, "14 Nov 2023, 10:13 PM", rows[0].Time)
	assert.Equal(t, "https://arbiscan.io/tx/0xabc", rows[0].TxURL)
}
