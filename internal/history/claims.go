package history

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/metrics"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

// AggregateClaims classifies raw claim records against snap, keeping the
// indexer's order. Collateral claims that reference a market missing from
// snap are dropped whole, as are funding fee settlements with no known
// market and records of unknown event names.
func AggregateClaims(raws []subgraph.RawClaimAction, snap *model.Snapshot) []model.ClaimAction {
	out := make([]model.ClaimAction, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		switch model.ClaimType(raw.EventName) {
		case model.ClaimFunding, model.ClaimPriceImpact:
			if a := claimCollateralAction(raw, snap); a != nil {
				out = append(out, a)
			}
		case model.SettleFundingFeeCreated, model.SettleFundingFeeExecuted, model.SettleFundingFeeCancelled:
			if a := settleFundingFeeAction(raw, snap); a != nil {
				out = append(out, a)
			}
		default:
			dropped(ScopeClaims, "unknown_event")
		}
	}
	return out
}

func claimCollateralAction(raw *subgraph.RawClaimAction, snap *model.Snapshot) *model.ClaimCollateralAction {
	amounts, ok := parseAmounts(raw.Amounts)
	if !ok {
		dropped(ScopeClaims, "bad_amount")
		return nil
	}
	prices, ok := parseAmounts(raw.TokenPrices)
	if !ok {
		dropped(ScopeClaims, "bad_amount")
		return nil
	}
	if len(raw.TokenAddresses) < len(raw.MarketAddresses) || len(amounts) < len(raw.MarketAddresses) {
		dropped(ScopeClaims, "malformed")
		return nil
	}

	var items []model.ClaimMarketItem
	index := make(map[string]int)
	for i, addr := range raw.MarketAddresses {
		market, ok := snap.Market(addr)
		if !ok {
			dropped(ScopeClaims, "unknown_market")
			return nil
		}
		pos, seen := index[market.MarketTokenAddress]
		if !seen {
			pos = len(items)
			index[market.MarketTokenAddress] = pos
			items = append(items, model.ClaimMarketItem{
				Market:           market,
				LongTokenAmount:  fixedpoint.Zero(),
				ShortTokenAmount: fixedpoint.Zero(),
			})
		}
		item := &items[pos]
		if model.NormalizeAddress(raw.TokenAddresses[i]) == market.LongTokenAddress {
			item.LongTokenAmount.Add(item.LongTokenAmount, amounts[i])
		} else {
			item.ShortTokenAmount.Add(item.ShortTokenAmount, amounts[i])
		}
	}

	return &model.ClaimCollateralAction{
		ID:              raw.ID,
		Type:            model.ClaimKindCollateral,
		EventName:       model.ClaimType(raw.EventName),
		Account:         raw.Account,
		ClaimItems:      items,
		Tokens:          resolveTokens(raw.TokenAddresses, snap),
		Amounts:         amounts,
		TokenPrices:     prices,
		Timestamp:       raw.Transaction.Timestamp,
		TransactionHash: raw.Transaction.Hash,
	}
}

func settleFundingFeeAction(raw *subgraph.RawClaimAction, snap *model.Snapshot) *model.ClaimFundingFeeAction {
	var markets []*model.MarketInfo
	for _, addr := range raw.MarketAddresses {
		if m, ok := snap.Market(addr); ok {
			markets = append(markets, m)
		}
	}
	if len(markets) == 0 {
		dropped(ScopeClaims, "unknown_market")
		return nil
	}

	amounts, ok := parseAmounts(raw.Amounts)
	if !ok {
		dropped(ScopeClaims, "bad_amount")
		return nil
	}
	prices, ok := parseAmounts(raw.TokenPrices)
	if !ok {
		dropped(ScopeClaims, "bad_amount")
		return nil
	}

	isLongOrders := raw.IsLongOrders
	if isLongOrders == nil {
		isLongOrders = []bool{}
	}

	return &model.ClaimFundingFeeAction{
		ID:              raw.ID,
		Type:            model.ClaimKindFundingFee,
		EventName:       model.ClaimType(raw.EventName),
		Account:         raw.Account,
		Markets:         markets,
		Tokens:          resolveTokens(raw.TokenAddresses, snap),
		Amounts:         amounts,
		TokenPrices:     prices,
		IsLongOrders:    isLongOrders,
		Timestamp:       raw.Transaction.Timestamp,
		TransactionHash: raw.Transaction.Hash,
	}
}

// resolveTokens looks up addresses in snap, skipping unknown tokens.
func resolveTokens(addrs []string, snap *model.Snapshot) []*model.Token {
	tokens := make([]*model.Token, 0, len(addrs))
	for _, addr := range addrs {
		if t, ok := snap.Token(addr); ok {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func parseAmounts(raw []string) ([]*big.Int, bool) {
	out := make([]*big.Int, len(raw))
	for i, s := range raw {
		v, err := fixedpoint.Parse(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func dropped(scope Scope, reason string) {
	metrics.DroppedRecords.WithLabelValues(string(scope), reason).Inc()
}
