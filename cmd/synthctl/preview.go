package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/increase"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/swap"
)

type previewFlags struct {
	market            string
	payToken          string
	collateralToken   string
	payAmount         string
	sizeAmount        string
	leverage          string
	triggerPrice      string
	short             bool
	slippageBps       int64
	acceptableImpact  int64
	showPnlInLeverage bool
	asJSON            bool
}

func newPreviewCmd() *cobra.Command {
	var f previewFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview a position increase",
		Example: `  synthctl preview --market 0x70d9...6336 --pay 0xaf88...5831 --pay-amount 1000 --leverage 5
  synthctl preview --market 0x70d9...6336 --pay 0xaf88...5831 --size 0.5 --leverage 10 --short`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(f)
		},
	}

	cmd.Flags().StringVar(&f.market, "market", "", "market token address")
	cmd.Flags().StringVar(&f.payToken, "pay", "", "token paid in (initial collateral)")
	cmd.Flags().StringVar(&f.collateralToken, "collateral", "", "position collateral token (default: the pay token if the market accepts it, else the short token)")
	cmd.Flags().StringVar(&f.payAmount, "pay-amount", "", "amount paid, in token units")
	cmd.Flags().StringVar(&f.sizeAmount, "size", "", "position size, in index token units")
	cmd.Flags().StringVar(&f.leverage, "leverage", "2", "leverage multiplier")
	cmd.Flags().StringVar(&f.triggerPrice, "trigger-price", "", "limit trigger price in USD; makes this a limit order")
	cmd.Flags().BoolVar(&f.short, "short", false, "open a short position")
	cmd.Flags().Int64Var(&f.slippageBps, "slippage", 30, "allowed slippage in basis points")
	cmd.Flags().Int64Var(&f.acceptableImpact, "acceptable-impact", 0, "acceptable price impact in basis points (0 derives it)")
	cmd.Flags().BoolVar(&f.showPnlInLeverage, "pnl-in-leverage", false, "include pnl when projecting leverage")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the full preview as JSON")
	cmd.MarkFlagRequired("market")
	cmd.MarkFlagRequired("pay")
	cmd.MarkFlagsMutuallyExclusive("pay-amount", "size")
	cmd.MarkFlagsOneRequired("pay-amount", "size")

	return cmd
}

func runPreview(f previewFlags) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	market, ok := snap.Market(f.market)
	if !ok {
		return fmt.Errorf("market %s not in %s", f.market, refDataPath)
	}
	pay, ok := snap.Token(f.payToken)
	if !ok {
		return fmt.Errorf("token %s not in %s", f.payToken, refDataPath)
	}
	collateral := market.ShortToken
	switch {
	case f.collateralToken != "":
		if collateral, ok = snap.Token(f.collateralToken); !ok {
			return fmt.Errorf("token %s not in %s", f.collateralToken, refDataPath)
		}
	case pay.Address == market.LongTokenAddress:
		collateral = market.LongToken
	}

	var amount increase.AmountInput
	if f.payAmount != "" {
		v, err := parseUnits(f.payAmount, pay.Decimals)
		if err != nil {
			return fmt.Errorf("--pay-amount: %w", err)
		}
		amount = increase.ByCollateralAmount{InitialCollateralAmount: v}
	} else {
		v, err := parseUnits(f.sizeAmount, market.IndexToken.Decimals)
		if err != nil {
			return fmt.Errorf("--size: %w", err)
		}
		amount = increase.ByIndexAmount{IndexTokenAmount: v}
	}

	leverage, err := parseUnits(f.leverage, 4)
	if err != nil || leverage.Sign() <= 0 {
		return fmt.Errorf("--leverage must be a positive number")
	}

	params := increase.TradeParamsInput{
		Params: increase.Params{
			Market:                 market,
			InitialCollateralToken: pay,
			CollateralToken:        collateral,
			IndexToken:             market.IndexToken,
			Amount:                 amount,
			IsLong:                 !f.short,
			Leverage:               leverage,
			AllowedSlippage:        f.slippageBps,
			FindSwapPath:           swap.DirectPathFinder(snap, pay.Address, collateral.Address),
		},
		ShowPnlInLeverage: f.showPnlInLeverage,
	}
	if f.acceptableImpact > 0 {
		params.AcceptablePriceImpactBps = big.NewInt(f.acceptableImpact)
	}
	if f.triggerPrice != "" {
		tp, err := parseUnits(f.triggerPrice, fixedpoint.USDDecimals)
		if err != nil {
			return fmt.Errorf("--trigger-price: %w", err)
		}
		params.IsLimit = true
		params.TriggerPrice = tp
	}

	out := increase.ComputeTradeParams(params)
	if out == nil {
		return fmt.Errorf("%s has no price in %s", market.IndexToken.Symbol, refDataPath)
	}
	if f.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printPreview(market, pay, collateral, out)
	return nil
}

func printPreview(market *model.MarketInfo, pay, collateral *model.Token, p *model.IncreasePositionTradeParams) {
	side := "Long"
	if !p.IsLong {
		side = "Short"
	}
	fmt.Printf("%s %s\n", side, market.Name)
	fmt.Printf("  Pay:              %s\n", fixedpoint.FormatTokenAmount(p.InitialCollateralAmount, pay.Decimals, pay.Symbol))
	fmt.Printf("  Collateral:       %s (%s)\n", fixedpoint.FormatTokenAmount(p.CollateralAmount, collateral.Decimals, collateral.Symbol), fixedpoint.FormatUSD(p.CollateralUsd))
	fmt.Printf("  Size:             %s (%s)\n", fixedpoint.FormatUSD(p.SizeDeltaUsd), fixedpoint.FormatTokenAmount(p.SizeDeltaInTokens, market.IndexToken.Decimals, market.IndexToken.Symbol))
	fmt.Printf("  Entry price:      %s\n", fixedpoint.FormatUSD(p.EntryMarkPrice))
	fmt.Printf("  Acceptable price: %s\n", fixedpoint.FormatUSD(p.AcceptablePriceAfterSlippage))
	fmt.Printf("  Position fee:     %s\n", fixedpoint.FormatUSD(p.PositionFeeUsd))
	fmt.Printf("  Price impact:     %s\n", fixedpoint.FormatUSD(p.PositionPriceImpactDeltaUsd))
	if p.NextPositionValues.NextLeverage != nil {
		fmt.Printf("  Next leverage:    %sx\n", fixedpoint.FormatAmount(p.NextPositionValues.NextLeverage, 4, 2))
	}
	if p.Fees.TotalFees != nil {
		fmt.Printf("  Total fees:       %s\n", fixedpoint.FormatUSD(p.Fees.TotalFees.DeltaUsd))
	}
}

// parseUnits reads a decimal string like "1.5" into a fixed-point integer
// with the given decimals, truncating any extra precision.
func parseUnits(s string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", s)
	}
	return fixedpoint.FromDecimal(d, decimals), nil
}
