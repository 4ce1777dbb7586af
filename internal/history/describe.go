package history

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// MessageKind distinguishes plain rows from rows with extra structure.
type MessageKind string

const (
	MessageText        MessageKind = "text"
	MessageLiquidation MessageKind = "liquidation"
)

// Message is the rendered description of a trade action. Liquidation
// messages carry a Label shown ahead of Text and the limits the position
// was held to.
type Message struct {
	Kind   MessageKind     `json:"kind"`
	Label  string          `json:"label,omitempty"`
	Text   string          `json:"text"`
	Limits *PositionLimits `json:"limits,omitempty"`
}

// PositionLimits are the thresholds a position must stay within to avoid
// liquidation. A nil MaxLeverage falls back to the action's market.
type PositionLimits struct {
	MinCollateralUsd *big.Int `json:"min_collateral_usd,omitempty"`
	MaxLeverage      *big.Int `json:"max_leverage,omitempty"`
}

func (m *Message) String() string {
	if m.Label == "" {
		return m.Text
	}
	return m.Label + " " + m.Text
}

func textMessage(format string, args ...any) *Message {
	return &Message{Kind: MessageText, Text: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

// DescribeTradeAction renders a as a single history line. It returns nil
// when no template fits the action's order type and event, or when the
// tokens it needs are not resolved. limits is attached to liquidations.
func DescribeTradeAction(a *model.TradeAction, limits PositionLimits) *Message {
	if a == nil {
		return nil
	}
	if a.OrderType.IsSwap() {
		return swapOrderMessage(a)
	}
	return positionOrderMessage(a, limits)
}

func orderActionText(event model.TradeActionType) (string, bool) {
	switch event {
	case model.OrderCreated:
		return "Create", true
	case model.OrderCancelled:
		return "Cancel", true
	case model.OrderExecuted:
		return "Execute", true
	case model.OrderUpdated:
		return "Update", true
	case model.OrderFrozen:
		return "Freeze", true
	}
	return "", false
}

func swapOrderMessage(a *model.TradeAction) *Message {
	tokenIn, tokenOut := a.InitialCollateralToken, a.TargetCollateralToken
	if tokenIn == nil || tokenOut == nil {
		return nil
	}
	actionText, ok := orderActionText(a.EventName)
	if !ok {
		return nil
	}

	amountIn := a.InitialCollateralDeltaAmount
	amountOut := a.MinOutputAmount
	if a.EventName == model.OrderExecuted {
		amountOut = a.ExecutionAmountOut
	}

	fromText := fixedpoint.FormatTokenAmount(amountIn, tokenIn.Decimals, tokenIn.Symbol)
	toText := fixedpoint.FormatTokenAmount(amountOut, tokenOut.Decimals, tokenOut.Symbol)

	if a.OrderType.IsLimit() {
		ratio := TokensRatioByAmounts(tokenIn, tokenOut, amountIn, amountOut)
		largest, smallest := tokenOut, tokenIn
		if ratio.LargestToken == tokenIn.Address {
			largest, smallest = tokenIn, tokenOut
		}
		return textMessage("%s Order: Swap %s for %s, Price: %s",
			actionText, fromText, toText, ExchangeRateDisplay(ratio.Ratio, largest, smallest))
	}

	if a.EventName == model.OrderCreated {
		actionText = "Request"
	}
	return textMessage("%s Swap %s for %s", actionText, fromText, toText)
}

var marketActionText = map[model.TradeActionType]string{
	model.OrderCreated:   "Request",
	model.OrderExecuted:  "",
	model.OrderCancelled: "Cancel",
	model.OrderUpdated:   "Update",
	model.OrderFrozen:    "Freeze",
}

func positionOrderMessage(a *model.TradeAction, limits PositionLimits) *Message {
	indexToken, collateralToken := a.IndexToken, a.InitialCollateralToken
	if indexToken == nil || collateralToken == nil {
		return nil
	}

	isIncrease := a.OrderType.IsIncrease()
	increaseText, sign := "Decrease", "-"
	if isIncrease {
		increaseText, sign = "Increase", "+"
	}
	longText := "Short"
	if a.IsLong {
		longText = "Long"
	}
	positionText := longText + " " + indexToken.Symbol
	sizeDeltaText := sign + fixedpoint.FormatUSD(a.SizeDeltaUsd)

	switch {
	case a.OrderType.IsLimit() || a.OrderType.IsTriggerDecrease():
		actionText, ok := orderActionText(a.EventName)
		if !ok {
			return nil
		}
		if a.EventName == model.OrderExecuted {
			return textMessage("Execute Order: %s %s %s, %s Price: %s",
				increaseText, positionText, sizeDeltaText, indexToken.Symbol, fixedpoint.FormatUSD(a.ExecutionPrice))
		}
		return textMessage("%s Order: %s %s %s, %s Price: %s %s",
			actionText, increaseText, positionText, sizeDeltaText, indexToken.Symbol,
			TriggerPricePrefix(a.OrderType, a.IsLong), fixedpoint.FormatUSD(a.AcceptablePrice))

	case a.OrderType.IsMarket():
		actionText, ok := marketActionText[a.EventName]
		if !ok {
			return nil
		}
		if fixedpoint.IsPositive(a.SizeDeltaUsd) {
			pricePrefix, price := "Acceptable Price", a.AcceptablePrice
			if a.EventName == model.OrderExecuted {
				pricePrefix, price = "Price", a.ExecutionPrice
			}
			return textMessage("%s %s %s %s, %s: %s",
				actionText, increaseText, positionText, sizeDeltaText, pricePrefix, fixedpoint.FormatUSD(price))
		}
		collateralText := fixedpoint.FormatTokenAmount(a.InitialCollateralDeltaAmount, collateralToken.Decimals, collateralToken.Symbol)
		if isIncrease {
			return textMessage("%s Deposit %s into %s", actionText, collateralText, positionText)
		}
		return textMessage("%s Withdraw %s from %s", actionText, collateralText, positionText)

	case a.OrderType.IsLiquidation() && a.EventName == model.OrderExecuted:
		return &Message{
			Kind:   MessageLiquidation,
			Label:  "Liquidated",
			Text:   fmt.Sprintf("%s %s, Price: %s", positionText, sizeDeltaText, fixedpoint.FormatUSD(a.ExecutionPrice)),
			Limits: liquidationLimits(a, limits),
		}
	}
	return nil
}

func liquidationLimits(a *model.TradeAction, limits PositionLimits) *PositionLimits {
	out := &PositionLimits{
		MinCollateralUsd: fixedpoint.Copy(limits.MinCollateralUsd),
		MaxLeverage:      fixedpoint.Copy(limits.MaxLeverage),
	}
	if out.MaxLeverage == nil && a.Market != nil {
		out.MaxLeverage = fixedpoint.Copy(a.Market.MaxLeverage)
	}
	return out
}

// TriggerPricePrefix is the comparison shown before a trigger or acceptable
// price: "<" when the order fills below the price, ">" above it.
func TriggerPricePrefix(orderType model.OrderType, isLong bool) string {
	switch orderType {
	case model.LimitIncrease, model.StopLossDecrease:
		if isLong {
			return "<"
		}
		return ">"
	case model.LimitDecrease:
		if isLong {
			return ">"
		}
		return "<"
	}
	return ""
}

// TokensRatio is the exchange rate between two token amounts expressed as
// units of the larger-valued side per unit of the smaller, scaled by 10^30.
type TokensRatio struct {
	Ratio         *big.Int
	LargestToken  string
	SmallestToken string
}

// TokensRatioByAmounts compares two amounts after normalizing decimals.
func TokensRatioByAmounts(from, to *model.Token, fromAmount, toAmount *big.Int) TokensRatio {
	precision := fixedpoint.Precision()
	adjustedFrom := fixedpoint.MulDiv(fixedpoint.OrZero(fromAmount), precision, fixedpoint.ExpandDecimals(1, from.Decimals))
	adjustedTo := fixedpoint.MulDiv(fixedpoint.OrZero(toAmount), precision, fixedpoint.ExpandDecimals(1, to.Decimals))

	smallest, largest := to, from
	smallestAmount, largestAmount := adjustedTo, adjustedFrom
	if adjustedFrom.Cmp(adjustedTo) < 0 {
		smallest, largest = from, to
		smallestAmount, largestAmount = adjustedFrom, adjustedTo
	}

	ratio := fixedpoint.Zero()
	if smallestAmount.Sign() > 0 {
		ratio = fixedpoint.MulDiv(largestAmount, precision, smallestAmount)
	}
	return TokensRatio{Ratio: ratio, LargestToken: largest.Address, SmallestToken: smallest.Address}
}

// ExchangeRateDisplay renders ratio as "1,850.25 USDC / ETH". The pair is
// inverted so the quote token is the stable or the cheaper one.
func ExchangeRateDisplay(ratio *big.Int, a, b *model.Token) string {
	if !fixedpoint.IsPositive(ratio) || a == nil || b == nil {
		return fixedpoint.Placeholder
	}
	if shouldInvertRatio(a, b) {
		a, b = b, a
		inverted := new(big.Int).Mul(fixedpoint.Precision(), fixedpoint.Precision())
		ratio = inverted.Quo(inverted, ratio)
	}
	displayDecimals := 4
	if a.IsStable {
		displayDecimals = 2
	}
	return fmt.Sprintf("%s %s / %s", fixedpoint.FormatAmount(ratio, fixedpoint.USDDecimals, displayDecimals), a.Symbol, b.Symbol)
}

func shouldInvertRatio(a, b *model.Token) bool {
	if b.IsStable {
		return true
	}
	return b.Prices.MaxPrice != nil && a.Prices.MaxPrice != nil && b.Prices.MaxPrice.Cmp(a.Prices.MaxPrice) < 0
}

// TradeRow is one rendered line of trade history.
type TradeRow struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Time      string   `json:"time"`
	Message   *Message `json:"message"`
	TxURL     string   `json:"tx_url"`
}

const rowTimeLayout = "02 Jan 2006, 3:04 PM"

// BuildTradeRows renders actions in order, skipping those DescribeTradeAction
// cannot describe. explorerURL ends with a slash.
func BuildTradeRows(explorerURL string, limits PositionLimits, actions []model.TradeAction) []TradeRow {
	rows := make([]TradeRow, 0, len(actions))
	for i := range actions {
		a := &actions[i]
		msg := DescribeTradeAction(a, limits)
		if msg == nil {
			continue
		}
		rows = append(rows, TradeRow{
			ID:        a.ID,
			Timestamp: a.Transaction.Timestamp,
			Time:      time.Unix(a.Transaction.Timestamp, 0).UTC().Format(rowTimeLayout),
			Message:   msg,
			TxURL:     explorerURL + "tx/" + a.Transaction.Hash,
		})
	}
	return rows
}
