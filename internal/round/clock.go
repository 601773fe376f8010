package round

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// Snapshot is one tick of derived countdown state for a round.
type Snapshot struct {
	RoundID          string
	Duration         int
	RemainingSeconds int
	ProgressPercent  float64
	Warning          bool // set on the tick the low-time warning fires
}

// Clock derives remaining time and progress for the current round from
// its server-assigned end timestamp. The countdown is recomputed once
// per second from the latest round reference, so a server correction
// takes effect within one tick. The low-time warning fires at most once
// per round ID and re-arms whenever the round ID changes.
type Clock struct {
	clock     clockwork.Clock
	logger    *zap.Logger
	threshold time.Duration

	mu              sync.Mutex
	current         *types.Round
	serverRemaining int    // fallback pushed by the server, -1 when unset
	warnedRoundID   string // round the one-shot warning already fired for
	defectRoundID   string // round already logged as a configuration defect

	snapshots chan Snapshot
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Config holds clock configuration.
type Config struct {
	Clock            clockwork.Clock
	Logger           *zap.Logger
	WarningThreshold time.Duration
}

// NewClock creates a round clock. It does not tick until Start.
func NewClock(cfg Config) *Clock {
	c := cfg.Clock
	if c == nil {
		c = clockwork.NewRealClock()
	}

	threshold := cfg.WarningThreshold
	if threshold <= 0 {
		threshold = 7 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Clock{
		clock:           c,
		logger:          cfg.Logger,
		threshold:       threshold,
		serverRemaining: -1,
		snapshots:       make(chan Snapshot, 64),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// SetRound replaces the round the clock is tracking. A new round ID
// re-arms the low-time warning; the same ID keeps its armed state so a
// server correction to the end timestamp cannot re-fire it.
func (c *Clock) SetRound(round *types.Round) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if round != nil && (c.current == nil || c.current.ID != round.ID) {
		c.serverRemaining = -1
	}
	c.current = round
}

// SetServerRemaining records a server-pushed remaining-seconds value,
// used when the current round carries no end timestamp.
func (c *Clock) SetServerRemaining(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverRemaining = seconds
}

// Snapshots returns the channel of per-tick countdown snapshots.
func (c *Clock) Snapshots() <-chan Snapshot {
	return c.snapshots
}

// Start begins the 1s tick loop.
func (c *Clock) Start() {
	c.logger.Info("round-clock-starting", zap.Duration("warning-threshold", c.threshold))

	c.wg.Add(1)
	go c.tickLoop()
}

func (c *Clock) tickLoop() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.Chan():
			snap, ok := c.Tick()
			if !ok {
				continue
			}

			select {
			case c.snapshots <- snap:
			default:
				SnapshotsDroppedTotal.Inc()
			}
		}
	}
}

// Tick recomputes the countdown from the latest round reference.
// Returns false when no round is set.
func (c *Clock) Tick() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	TicksTotal.Inc()

	round := c.current
	if round == nil {
		return Snapshot{}, false
	}

	snap := c.computeLocked(round, c.clock.Now())

	if snap.RemainingSeconds <= int(c.threshold/time.Second) && c.warnedRoundID != round.ID && round.Duration > 0 {
		c.warnedRoundID = round.ID
		snap.Warning = true
		WarningsFiredTotal.Inc()
		c.logger.Debug("low-time-warning",
			zap.String("round-id", round.ID),
			zap.Int("remaining-seconds", snap.RemainingSeconds))
	}

	return snap, true
}

// computeLocked derives remaining seconds and progress. Invalid
// duration degrades to a zeroed snapshot and is logged once per round.
func (c *Clock) computeLocked(round *types.Round, now time.Time) Snapshot {
	snap := Snapshot{RoundID: round.ID, Duration: round.Duration}

	if round.Duration <= 0 {
		if c.defectRoundID != round.ID {
			c.defectRoundID = round.ID
			ConfigDefectsTotal.Inc()
			c.logger.Warn("invalid-round-duration",
				zap.String("round-id", round.ID),
				zap.Int("duration", round.Duration))
		}
		return snap
	}

	totalSeconds := round.Duration * 60

	var remaining int
	switch {
	case !round.EndTime.IsZero():
		remaining = int(round.EndTime.Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
	case c.serverRemaining >= 0:
		remaining = c.serverRemaining
	default:
		// Round not yet started in this view: full duration, no progress.
		snap.RemainingSeconds = totalSeconds
		return snap
	}

	progress := float64(totalSeconds-remaining) / float64(totalSeconds) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	snap.RemainingSeconds = remaining
	snap.ProgressPercent = progress
	return snap
}

// Close stops the tick loop.
func (c *Clock) Close() error {
	c.cancel()
	c.wg.Wait()
	close(c.snapshots)
	return nil
}
