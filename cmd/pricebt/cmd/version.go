package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the pricebt CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pricebt version %s\n", version)
		fmt.Println("Indicator strategy backtester for daily price histories")
		fmt.Println("https://github.com/rustyeddy/pricebt")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
