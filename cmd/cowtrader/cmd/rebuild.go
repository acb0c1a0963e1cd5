package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/cowtrader/config"
	"github.com/rustyeddy/cowtrader/cow"
	"github.com/rustyeddy/cowtrader/feed"
	"github.com/rustyeddy/cowtrader/ledger"
	"github.com/rustyeddy/cowtrader/market"
	"github.com/rustyeddy/cowtrader/state"
	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild position state from trade history",
	Long: `Fetch recent fills from the venue and replay them into a fresh ledger.

By default the result is only printed. With --write the state document is
replaced, which is how to recover from a lost or corrupt state file.

Example:
  cowtrader rebuild --config cowtrader.yaml --fills 100 --write`,
	RunE: runRebuild,
}

var (
	rebuildConfigPath string
	rebuildFills      int
	rebuildWrite      bool
)

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().StringVarP(&rebuildConfigPath, "config", "f", "", "path to config file (required)")
	rebuildCmd.Flags().IntVar(&rebuildFills, "fills", 50, "maximum number of recent fills to replay")
	rebuildCmd.Flags().BoolVar(&rebuildWrite, "write", false, "replace the state document with the rebuilt ledger")
	rebuildCmd.MarkFlagRequired("config")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(rebuildConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pair, err := market.NewPair(cfg.Pair.Base, cfg.Pair.Quote)
	if err != nil {
		return err
	}

	venue := cow.NewClient(cfg.Account.CowAPIURL, cfg.Account.Address)
	seen := ledger.NewSeenSet()
	rec := ledger.NewReconciler(venue, pair, seen)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fills, err := rec.FetchFills(ctx, rebuildFills)
	if err != nil {
		return fmt.Errorf("fetch fills: %w", err)
	}

	l := ledger.Rebuild(fills)
	fmt.Printf("Replayed %d fills for %s\n", len(fills), pair.Name())
	fmt.Printf("  Holdings: %.6f %s\n", l.Holdings, pair.Base.Symbol)
	fmt.Printf("  Total cost: %.2f %s\n", l.TotalCost, pair.Quote.Symbol)
	fmt.Printf("  Cost basis: %.2f\n", l.CostBasis)

	if !rebuildWrite {
		fmt.Println("\nDry run; pass --write to replace the state document.")
		return nil
	}

	ids := make([]string, 0, len(fills))
	for _, f := range fills {
		ids = append(ids, f.TradeID)
	}
	doc := &state.Document{
		Ledger:            l,
		Feed:              feed.State{},
		ProcessedTradeIDs: ids,
		LastUpdated:       time.Now(),
	}
	if err := state.Save(cfg.State.File, doc); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	fmt.Printf("\n✓ State written: %s\n", cfg.State.File)
	return nil
}
