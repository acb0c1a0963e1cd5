package cmd

import (
	"fmt"

	"github.com/rustyeddy/cowtrader/config"
	"github.com/rustyeddy/cowtrader/state"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the persisted state document",
	Long: `Print a summary of the bot's persisted state: position, price history,
processed trades and the decision-backend cursor.

Example:
  cowtrader state --config cowtrader.yaml`,
	RunE: runState,
}

var stateConfigPath string

func init() {
	rootCmd.AddCommand(stateCmd)

	stateCmd.Flags().StringVarP(&stateConfigPath, "config", "f", "", "path to config file (required)")
	stateCmd.MarkFlagRequired("config")
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(stateConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	doc, err := state.Load(cfg.State.File)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if doc == nil {
		fmt.Printf("No state document at %s\n", cfg.State.File)
		return nil
	}

	fmt.Printf("State: %s (updated %s)\n", cfg.State.File, doc.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Holdings: %.6f\n", doc.Ledger.Holdings)
	fmt.Printf("  Total cost: %.2f\n", doc.Ledger.TotalCost)
	fmt.Printf("  Cost basis: %.2f\n", doc.Ledger.CostBasis)
	fmt.Printf("  Processed trades: %d\n", len(doc.ProcessedTradeIDs))
	fmt.Printf("  Price history: %d points\n", len(doc.Feed.History))
	if doc.Feed.High.Set {
		fmt.Printf("  High watermark: %.2f\n", doc.Feed.High.Value)
	}
	if doc.Feed.Low.Set {
		fmt.Printf("  Low watermark: %.2f\n", doc.Feed.Low.Value)
	}
	fmt.Printf("  Backend cursor: %d\n", doc.BackendCursor)
	return nil
}
