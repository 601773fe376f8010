package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "roundcore",
	Short: "Round lifecycle and integrity service",
	Long: `Roundcore tracks the lifecycle of timed wagering rounds and
independently verifies the financial aggregates the dispatcher produces.

It maintains a realtime connection to the dispatcher, derives per-round
countdowns from server-assigned end timestamps, and periodically
recomputes round results, bet totals and account balances against
primary records, flagging any divergence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
