package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the cowtrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cowtrader version %s\n", version)
		fmt.Println("An AI-assisted limit-order trading bot for CoW Protocol")
		fmt.Println("https://github.com/rustyeddy/cowtrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
