package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cowtrader",
	Short: "An AI-assisted limit-order trading bot for CoW Protocol",
	Long: `Cowtrader trades a single token pair on CoW Protocol using limit orders.

It provides tools for:
  - Running the trading loop with AI-backed decisions and a rule fallback
  - Rebuilding position state from on-venue trade history
  - Inspecting the persisted state document
  - Journaling fills and decisions to CSV or SQLite

Complete documentation is available at https://github.com/rustyeddy/cowtrader`,
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cobra.OnInitialize(func() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})
}
