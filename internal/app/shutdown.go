package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Shutdown the HTTP server first so no request observes a
	// half-stopped pipeline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close the hub before cancelling so the close is recorded as
	// intentional and reconnection stays suppressed.
	err = a.shutdownEventHub()
	if err != nil {
		a.logger.Error("event-hub-close-error", zap.Error(err))
	}

	// Cancel context to signal remaining components
	a.cancel()

	// Close round clocks
	a.shutdownClocks()

	// Close storage
	err = a.shutdownStorage()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownEventHub() error {
	return a.eventHub.Close()
}

func (a *App) shutdownClocks() {
	for duration, clock := range a.clocks {
		err := clock.Close()
		if err != nil {
			a.logger.Error("round-clock-close-error",
				zap.Int("duration", duration),
				zap.Error(err))
		}
	}
}

func (a *App) shutdownStorage() error {
	return a.store.Close()
}
