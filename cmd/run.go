package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wingolabs/roundcore/internal/app"
	"github.com/wingolabs/roundcore/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the round lifecycle service",
	Long: `Starts the roundcore service, which will:
1. Connect to the dispatcher's realtime channel
2. Track the current round and countdown per duration class
3. Periodically re-validate financial aggregates against primary records
4. Serve round state, validation reports and metrics over HTTP

Use --no-sweep to disable the periodic validation sweep for debugging.`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("no-sweep", false, "Disable the periodic validation sweep (for debugging)")
}

func runService(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	noSweep, _ := cmd.Flags().GetBool("no-sweep")

	// Create app with options
	opts := &app.Options{
		DisableSweep: noSweep,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
