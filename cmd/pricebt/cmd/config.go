package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pricebt/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage batch configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  pricebt config init --output research.yaml
  pricebt config validate --file research.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with the default strategy grid.

Example:
  pricebt config init --output research.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  pricebt config validate --file research.yaml`,
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

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "pricebt.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nSet data.path and run with:")
	fmt.Printf("  pricebt backtest --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	configs, err := cfg.Configs()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	if cfg.Data.Path != "" {
		fmt.Printf("  Data: %s\n", cfg.Data.Path)
	}
	for _, f := range config.Families {
		cs, _ := cfg.FamilyConfigs(f)
		fmt.Printf("  %-10s %d configs\n", f, len(cs))
	}
	fmt.Printf("  Total: %d configs, %d workers\n", len(configs), cfg.Workers)
	fmt.Printf("  Output: %v -> %s\n", cfg.Output.Formats, cfg.Output.Dir)
	return nil
}
