// Command synthctl previews increase orders against a reference data file
// and prints an account's claim and trade history from the stats subgraph.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atmx/synthetics-engine/internal/config"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
)

var (
	refDataPath string
	chainID     int64
	subgraphURL string
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "synthctl",
		Short: "Synthetics trading toolkit",
		Long:  `Preview position increases and inspect account history on a synthetics deployment`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&refDataPath, "refdata", "refdata.json", "reference data file (tokens, markets and prices)")
	rootCmd.PersistentFlags().Int64Var(&chainID, "chain", config.Arbitrum, "chain id")
	rootCmd.PersistentFlags().StringVar(&subgraphURL, "subgraph", "", "stats subgraph endpoint (default depends on --chain)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newPreviewCmd(), newClaimsCmd(), newTradesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSnapshot() (*model.Snapshot, error) {
	rd, err := store.ReadRefData(refDataPath)
	if err != nil {
		return nil, err
	}
	if rd.ChainID == 0 {
		rd.ChainID = chainID
	}
	return rd.Snapshot(), nil
}
