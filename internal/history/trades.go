package history

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

// AggregateTrades resolves raw trade records against snap, keeping the
// indexer's order. Records whose market, collateral tokens or swap path
// cannot be resolved are dropped.
func AggregateTrades(raws []subgraph.RawTradeAction, snap *model.Snapshot) []model.TradeAction {
	out := make([]model.TradeAction, 0, len(raws))
	for i := range raws {
		if a, ok := tradeAction(&raws[i], snap); ok {
			out = append(out, a)
		}
	}
	return out
}

func tradeAction(raw *subgraph.RawTradeAction, snap *model.Snapshot) (model.TradeAction, bool) {
	orderType, err := model.ParseOrderType(raw.OrderType)
	if err != nil {
		dropped(ScopeTrades, "unknown_order_type")
		return model.TradeAction{}, false
	}

	swapPath := make([]string, len(raw.SwapPath))
	for i, addr := range raw.SwapPath {
		swapPath[i] = model.NormalizeAddress(addr)
	}

	initial, ok := snap.Token(raw.InitialCollateralTokenAddress)
	if !ok {
		dropped(ScopeTrades, "unknown_token")
		return model.TradeAction{}, false
	}
	outAddr, ok := swapPathOutput(snap, initial.Address, swapPath)
	if !ok {
		dropped(ScopeTrades, "unknown_market")
		return model.TradeAction{}, false
	}
	target, ok := snap.Token(outAddr)
	if !ok {
		dropped(ScopeTrades, "unknown_token")
		return model.TradeAction{}, false
	}

	a := model.TradeAction{
		ID:                           raw.ID,
		EventName:                    model.TradeActionType(raw.EventName),
		Account:                      raw.Account,
		OrderKey:                     raw.OrderKey,
		OrderType:                    orderType,
		IsLong:                       raw.IsLong != nil && *raw.IsLong,
		InitialCollateralToken:       initial,
		TargetCollateralToken:        target,
		SwapPath:                     swapPath,
		InitialCollateralDeltaAmount: optionalAmount(raw.InitialCollateralDeltaAmount),
		SizeDeltaUsd:                 optionalAmount(raw.SizeDeltaUsd),
		TriggerPrice:                 optionalAmount(raw.TriggerPrice),
		AcceptablePrice:              optionalAmount(raw.AcceptablePrice),
		ExecutionPrice:               optionalAmount(raw.ExecutionPrice),
		MinOutputAmount:              optionalAmount(raw.MinOutputAmount),
		ExecutionAmountOut:           optionalAmount(raw.ExecutionAmountOut),
		Transaction: model.Transaction{
			Timestamp: raw.Transaction.Timestamp,
			Hash:      raw.Transaction.Hash,
		},
	}
	if raw.Reason != nil {
		a.Reason = *raw.Reason
	}

	if !orderType.IsSwap() {
		if raw.MarketAddress == nil {
			dropped(ScopeTrades, "malformed")
			return model.TradeAction{}, false
		}
		market, ok := snap.Market(*raw.MarketAddress)
		if !ok {
			dropped(ScopeTrades, "unknown_market")
			return model.TradeAction{}, false
		}
		a.MarketAddress = market.MarketTokenAddress
		a.Market = market
		a.IndexToken = market.IndexToken
	}
	return a, true
}

// swapPathOutput walks path from tokenIn, swapping into the other
// collateral token of each market. It fails on an unknown market.
func swapPathOutput(snap *model.Snapshot, tokenIn string, path []string) (string, bool) {
	cur := tokenIn
	for _, addr := range path {
		m, ok := snap.Market(addr)
		if !ok {
			return "", false
		}
		if cur == m.LongTokenAddress {
			cur = m.ShortTokenAddress
		} else {
			cur = m.LongTokenAddress
		}
	}
	return cur, true
}

func optionalAmount(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, err := fixedpoint.Parse(*s)
	if err != nil {
		return nil
	}
	return v
}
