package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atmx/synthetics-engine/internal/config"
	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/history"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

type historyFlags struct {
	pages      int
	pageSize   int
	from       int64
	to         int64
	events     []string
	markets    []string
	orderTypes []int
}

func (f *historyFlags) register(cmd *cobra.Command, withOrderTypes bool) {
	cmd.Flags().IntVar(&f.pages, "pages", 1, "number of pages to load")
	cmd.Flags().IntVar(&f.pageSize, "page-size", history.DefaultPageSize, "records per page")
	cmd.Flags().Int64Var(&f.from, "from", 0, "only actions at or after this unix time")
	cmd.Flags().Int64Var(&f.to, "to", 0, "only actions at or before this unix time")
	cmd.Flags().StringSliceVar(&f.events, "event", nil, "event names to include")
	cmd.Flags().StringSliceVar(&f.markets, "market", nil, "market addresses to include")
	if withOrderTypes {
		cmd.Flags().IntSliceVar(&f.orderTypes, "order-type", nil, "order types to include (0-7)")
	}
}

func (f *historyFlags) filters() history.Filters {
	return history.Filters{
		PageSize:        f.pageSize,
		FromTimestamp:   f.from,
		ToTimestamp:     f.to,
		EventNames:      f.events,
		MarketAddresses: f.markets,
		OrderTypes:      f.orderTypes,
	}
}

func newClaimsCmd() *cobra.Command {
	var f historyFlags
	cmd := &cobra.Command{
		Use:   "claims <account>",
		Short: "Print an account's funding and price impact claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			snap, client, err := historySetup()
			if err != nil {
				return err
			}
			fetcher := history.NewFetcher[subgraph.RawClaimAction](history.ScopeClaims, history.NewMemoryPageCache(64, 0))
			h, err := history.NewClaimHistory(chainID, args[0], client, fetcher, f.filters())
			if err != nil {
				return err
			}
			if err := h.LoadPages(ctx, f.pages); err != nil {
				return err
			}
			for _, a := range h.Actions(snap) {
				printClaim(a)
			}
			printMore(h.HasMore())
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func newTradesCmd() *cobra.Command {
	var f historyFlags
	var explorerURL, minCollateral string
	cmd := &cobra.Command{
		Use:   "trades <account>",
		Short: "Print an account's trade history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			snap, client, err := historySetup()
			if err != nil {
				return err
			}
			if explorerURL == "" {
				explorerURL = config.ExplorerURL(chainID)
			}
			minCollateralUsd, err := parseUnits(minCollateral, fixedpoint.USDDecimals)
			if err != nil {
				return fmt.Errorf("--min-collateral: %w", err)
			}
			fetcher := history.NewFetcher[subgraph.RawTradeAction](history.ScopeTrades, history.NewMemoryPageCache(64, 0))
			h, err := history.NewTradeHistory(chainID, args[0], client, fetcher, f.filters())
			if err != nil {
				return err
			}
			if err := h.LoadPages(ctx, f.pages); err != nil {
				return err
			}
			limits := history.PositionLimits{MinCollateralUsd: minCollateralUsd}
			for _, row := range h.Rows(snap, explorerURL, limits) {
				fmt.Printf("%s  %s\n", row.Time, row.Message)
				if l := row.Message.Limits; l != nil {
					printLimits(l)
				}
				fmt.Printf("    %s\n", row.TxURL)
			}
			printMore(h.HasMore())
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVar(&explorerURL, "explorer", "", "block explorer base URL (default depends on --chain)")
	cmd.Flags().StringVar(&minCollateral, "min-collateral", "1", "minimum collateral in USD, shown with liquidations")
	return cmd
}

func historySetup() (*model.Snapshot, *subgraph.Client, error) {
	snap, err := loadSnapshot()
	if err != nil {
		return nil, nil, err
	}
	endpoint := subgraphURL
	if endpoint == "" {
		var ok bool
		if endpoint, ok = config.SubgraphURL(chainID); !ok {
			return nil, nil, fmt.Errorf("no stats subgraph known for chain %d, pass --subgraph", chainID)
		}
	}
	client, err := subgraph.NewClient(endpoint)
	if err != nil {
		return nil, nil, err
	}
	return snap, client, nil
}

func printClaim(a model.ClaimAction) {
	switch c := a.(type) {
	case *model.ClaimCollateralAction:
		fmt.Printf("%s  %s\n", timestamp(c.Timestamp), c.EventName)
		for _, item := range c.ClaimItems {
			var parts []string
			if item.LongTokenAmount.Sign() > 0 {
				parts = append(parts, fixedpoint.FormatTokenAmount(item.LongTokenAmount, item.Market.LongToken.Decimals, item.Market.LongToken.Symbol))
			}
			if item.ShortTokenAmount.Sign() > 0 {
				parts = append(parts, fixedpoint.FormatTokenAmount(item.ShortTokenAmount, item.Market.ShortToken.Decimals, item.Market.ShortToken.Symbol))
			}
			fmt.Printf("    %s: %s\n", item.Market.Name, strings.Join(parts, ", "))
		}
	case *model.ClaimFundingFeeAction:
		names := make([]string, len(c.Markets))
		for i, m := range c.Markets {
			names[i] = m.Name
		}
		fmt.Printf("%s  %s  %s\n", timestamp(c.Timestamp), c.EventName, strings.Join(names, ", "))
	}
}

func printLimits(l *history.PositionLimits) {
	fmt.Printf("    Min collateral: %s", fixedpoint.FormatUSD(l.MinCollateralUsd))
	if l.MaxLeverage != nil {
		fmt.Printf(", max leverage: %sx", fixedpoint.FormatAmount(l.MaxLeverage, 4, 2))
	}
	fmt.Println()
}

func timestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("02 Jan 2006, 3:04 PM")
}

func printMore(hasMore bool) {
	if hasMore {
		fmt.Fprintln(os.Stderr, "more records available, raise --pages")
	}
}
