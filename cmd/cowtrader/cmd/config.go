package cmd

import (
	"fmt"

	"github.com/rustyeddy/cowtrader/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the bot.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  cowtrader config init --output cowtrader.yaml
  cowtrader config validate --file cowtrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  cowtrader config init --output cowtrader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded. Environment
overrides (OPENROUTER_API_KEY, SIGNER_URL, ...) are applied before validation.

Example:
  cowtrader config validate --file cowtrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "cowtrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nSet account.address, export OPENROUTER_API_KEY and SIGNER_URL, then run:")
	fmt.Printf("  cowtrader run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Account: %s\n", cfg.Account.Address)
	fmt.Printf("  Pair: %s/%s\n", cfg.Pair.Base, cfg.Pair.Quote)
	fmt.Printf("  Interval: %s\n", cfg.Trading.Interval)
	fmt.Printf("  Models: %d\n", len(cfg.Decision.Models))
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
