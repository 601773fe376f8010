package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wingolabs/roundcore/internal/round"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.RealtimeWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Cached aggregate views go stale when the dispatcher says so.
	if a.cachedStore != nil {
		a.eventHub.OnDashboardInvalidate(a.cachedStore.InvalidateAll)
	}

	// Start round clocks and their snapshot drains
	for _, clock := range a.clocks {
		clock.Start()
		a.wg.Add(1)
		go a.drainSnapshots(clock)
	}

	// Start event hub
	err := a.eventHub.Start()
	if err != nil {
		return fmt.Errorf("start event hub: %w", err)
	}

	// Start event routing
	a.wg.Add(1)
	go a.routeEvents()

	// Start periodic validation sweep
	if a.cfg.ValidationSweepInterval > 0 {
		a.wg.Add(1)
		go a.runSweepLoop()
	} else {
		a.logger.Info("validation-sweep-disabled")
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// routeEvents feeds round lifecycle events from the hub into the clock
// for the matching duration class. All other topics are folded into hub
// state on arrival and need no routing.
func (a *App) routeEvents() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case env := <-a.eventHub.Events():
			switch env.Type {
			case types.EventRoundStarted, types.EventRoundEnded:
				a.applyRoundEvent(&env)
			}
		}
	}
}

func (a *App) applyRoundEvent(env *types.Envelope) {
	duration := env.Duration
	if duration == 0 && env.Game != nil {
		duration = env.Game.Duration
	}

	clock, ok := a.clocks[duration]
	if !ok {
		a.logger.Warn("round-event-unknown-duration",
			zap.String("type", string(env.Type)),
			zap.Int("duration", duration))
		return
	}

	clock.SetRound(env.Game)
	if env.TimeRemaining > 0 {
		clock.SetServerRemaining(env.TimeRemaining)
	}
}

// drainSnapshots consumes a clock's per-tick output. Warning snapshots
// are surfaced for operators; the rest only exist for downstream
// consumers and are logged at debug.
func (a *App) drainSnapshots(clock *round.Clock) {
	defer a.wg.Done()

	for snap := range clock.Snapshots() {
		if snap.Warning {
			a.logger.Info("round-ending-soon",
				zap.String("round-id", snap.RoundID),
				zap.Int("remaining-seconds", snap.RemainingSeconds))
			continue
		}

		a.logger.Debug("round-tick",
			zap.String("round-id", snap.RoundID),
			zap.Int("remaining-seconds", snap.RemainingSeconds),
			zap.Float64("progress-percent", snap.ProgressPercent))
	}
}

func (a *App) runSweepLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.ValidationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.validator.RunComprehensiveValidation(a.ctx)
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
