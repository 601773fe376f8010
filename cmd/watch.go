package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wingolabs/roundcore/internal/hub"
	"github.com/wingolabs/roundcore/pkg/config"
	"github.com/wingolabs/roundcore/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch realtime events from the dispatcher",
	Long: `Connects to the dispatcher's realtime channel and displays events as
they arrive. Useful for debugging round scheduling and event flow.

Example:
  REALTIME_WS_URL=ws://localhost:9090/ws roundcore watch`,
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolP("json", "j", false, "Output raw JSON envelopes")
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Create event hub
	eventHub := hub.New(hub.Config{
		URL:          cfg.RealtimeWSURL,
		DialTimeout:  cfg.WSDialTimeout,
		PingInterval: cfg.WSPingInterval,
		Backoff: hub.BackoffPolicy{
			BaseDelay:   cfg.WSReconnectBaseDelay,
			CapDelay:    cfg.WSReconnectCapDelay,
			LongDelay:   cfg.WSReconnectLongDelay,
			CapAttempts: cfg.WSReconnectCapAttempts,
		},
		MessageBufferSize: cfg.WSMessageBufferSize,
		MetricsWindow:     cfg.MetricsThrottleWindow,
		OddsWindow:        cfg.OddsThrottleWindow,
		Logger:            logger,
	})

	err = eventHub.Start()
	if err != nil {
		return fmt.Errorf("start event hub: %w", err)
	}
	defer eventHub.Close()

	fmt.Printf("Connected to %s, watching for events...\n\n", cfg.RealtimeWSURL)

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		case env := <-eventHub.Events():
			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(env, "", "  ")
				fmt.Println(string(jsonBytes))
			} else {
				printFormattedEvent(w, &env)
			}
		}
	}
}

func printFormattedEvent(w *tabwriter.Writer, env *types.Envelope) {
	timestamp := time.Now().Format("15:04:05")

	fmt.Fprintf(w, "[%s] %s\t", timestamp, env.Type)

	switch env.Type {
	case types.EventRoundStarted, types.EventRoundEnded:
		if env.Game != nil {
			fmt.Fprintf(w, "round=%s\tduration=%dm\tstatus=%s\n",
				env.Game.ID, env.Game.Duration, env.Game.Status)
		} else {
			fmt.Fprintf(w, "duration=%dm\n", env.Duration)
		}
	case types.EventBalanceChanged:
		if env.BalanceUpdate != nil {
			fmt.Fprintf(w, "account=%s\tdelta=%.2f\tbalance=%.2f\n",
				env.BalanceUpdate.AccountID, env.BalanceUpdate.Delta, env.BalanceUpdate.Balance)
		} else {
			fmt.Fprintf(w, "\n")
		}
	case types.EventValidationReport:
		if env.Report != nil {
			fmt.Fprintf(w, "checks=%d\tfailed=%d\thealthy=%t\n",
				env.Report.TotalChecks, env.Report.FailedChecks, env.Report.Healthy)
		} else {
			fmt.Fprintf(w, "\n")
		}
	default:
		fmt.Fprintf(w, "\n")
	}

	w.Flush()
}
