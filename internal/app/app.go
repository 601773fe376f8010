package app

import (
	"context"
	"sync"

	"github.com/wingolabs/roundcore/internal/hub"
	"github.com/wingolabs/roundcore/internal/integrity"
	"github.com/wingolabs/roundcore/internal/round"
	"github.com/wingolabs/roundcore/internal/storage"
	"github.com/wingolabs/roundcore/pkg/config"
	"github.com/wingolabs/roundcore/pkg/healthprobe"
	"github.com/wingolabs/roundcore/pkg/httpserver"
	"go.uber.org/zap"
)

// durationClasses are the round duration classes, in minutes, the
// platform schedules concurrently. Each class gets its own clock.
var durationClasses = []int{1, 3, 5, 10}

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	eventHub      *hub.Hub
	validator     *integrity.Validator
	clocks        map[int]*round.Clock
	store         storage.Store
	cachedStore   *storage.CachedStore // nil in memory storage mode
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	DisableSweep bool // For debugging: skip the periodic validation sweep
}
