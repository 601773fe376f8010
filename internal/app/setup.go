package app

import (
	"context"
	"fmt"

	"github.com/wingolabs/roundcore/internal/hub"
	"github.com/wingolabs/roundcore/internal/integrity"
	"github.com/wingolabs/roundcore/internal/round"
	"github.com/wingolabs/roundcore/internal/storage"
	"github.com/wingolabs/roundcore/pkg/cache"
	"github.com/wingolabs/roundcore/pkg/config"
	"github.com/wingolabs/roundcore/pkg/healthprobe"
	"github.com/wingolabs/roundcore/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DisableSweep {
		cfg.ValidationSweepInterval = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	eventHub := setupEventHub(cfg, logger)
	clocks := setupClocks(cfg, logger)

	store, cachedStore, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	validator := setupValidator(cfg, logger, store, eventHub)

	// The liveness probe follows the validator's cumulative pass ratio.
	healthChecker.SetHealthFunc(validator.Healthy)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, eventHub, validator)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		eventHub:      eventHub,
		validator:     validator,
		clocks:        clocks,
		store:         store,
		cachedStore:   cachedStore,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	eventHub *hub.Hub,
	validator *integrity.Validator,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		EventHub:      eventHub,
		Validator:     validator,
	})
}

func setupEventHub(cfg *config.Config, logger *zap.Logger) *hub.Hub {
	return hub.New(hub.Config{
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
}

func setupClocks(cfg *config.Config, logger *zap.Logger) map[int]*round.Clock {
	clocks := make(map[int]*round.Clock, len(durationClasses))
	for _, duration := range durationClasses {
		clocks[duration] = round.NewClock(round.Config{
			Logger:           logger.With(zap.Int("duration", duration)),
			WarningThreshold: cfg.ClockWarningThreshold,
		})
	}
	return clocks
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, *storage.CachedStore, error) {
	if cfg.StorageMode == "postgres" {
		pgStore, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres store: %w", err)
		}

		roundCache, err := setupCache(logger)
		if err != nil {
			return nil, nil, fmt.Errorf("setup cache: %w", err)
		}

		cached := storage.NewCachedStore(pgStore, roundCache, cfg.CacheTTL, logger)
		return cached, cached, nil
	}

	return storage.NewMemoryStore(logger), nil, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (recent completed rounds + bets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupValidator(
	cfg *config.Config,
	logger *zap.Logger,
	store storage.Store,
	publisher integrity.Publisher,
) *integrity.Validator {
	return integrity.New(integrity.Config{
		RoundSample:      cfg.ValidationRoundSample,
		BetsPerRound:     cfg.ValidationBetsPerRound,
		HealthyPassRatio: cfg.HealthyPassRatio,
		Logger:           logger,
	}, store, publisher)
}
