package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wingolabs/roundcore/internal/integrity"
	"github.com/wingolabs/roundcore/internal/storage"
	"github.com/wingolabs/roundcore/pkg/config"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a one-off integrity validation sweep",
	Long: `Runs a single comprehensive validation sweep against the configured
storage backend and prints the resulting report. Exits non-zero when the
sweep finds enough failures to flip the health signal.

Example:
  STORAGE_MODE=postgres roundcore validate --rounds 50`,
	RunE: runValidate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntP("rounds", "r", 0, "Number of recent completed rounds to sweep (default from env)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	rounds, _ := cmd.Flags().GetInt("rounds")
	if rounds > 0 {
		cfg.ValidationRoundSample = rounds
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	validator := integrity.New(integrity.Config{
		RoundSample:      cfg.ValidationRoundSample,
		BetsPerRound:     cfg.ValidationBetsPerRound,
		HealthyPassRatio: cfg.HealthyPassRatio,
		Logger:           logger,
	}, store, nil)

	report := validator.RunComprehensiveValidation(context.Background())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total checks:\t%d\n", report.TotalChecks)
	fmt.Fprintf(w, "Passed:\t%d\n", report.PassedChecks)
	fmt.Fprintf(w, "Failed:\t%d\n", report.FailedChecks)
	fmt.Fprintf(w, "Healthy:\t%t\n", report.Healthy)
	w.Flush()

	if len(report.Findings) > 0 {
		fmt.Println("\nFindings:")
		for _, f := range report.Findings {
			fmt.Fprintf(w, "[%s/%s]\t%s\t%s\texpected %s, got %s\n",
				f.Category, f.Severity, f.EntityID, f.Description, f.Expected, f.Actual)
		}
		w.Flush()
	}

	if !report.Healthy {
		return fmt.Errorf("integrity sweep unhealthy: %d of %d checks failed",
			report.FailedChecks, report.TotalChecks)
	}

	return nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	return storage.NewMemoryStore(logger), nil
}
