package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/wingolabs/roundcore/pkg/ratelimit"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// Hub maintains the single logical realtime connection to the
// dispatcher, decodes typed envelopes, folds them into per-topic state
// and fans applied events out to local observers. It survives
// transient network loss via backoff reconnection; an intentional
// close suppresses all reconnection.
type Hub struct {
	url     string
	logger  *zap.Logger
	config  Config
	backoff BackoffPolicy
	clock   clockwork.Clock
	state   *topicState

	conn             *websocket.Conn
	connMu           sync.RWMutex
	connState        atomic.Int32
	intentionalClose atomic.Bool
	lastPongTime     atomic.Int64

	events chan types.Envelope
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds hub configuration.
type Config struct {
	URL               string
	DialTimeout       time.Duration
	PingInterval      time.Duration
	Backoff           BackoffPolicy
	MessageBufferSize int
	MetricsWindow     time.Duration
	OddsWindow        time.Duration
	Clock             clockwork.Clock
	Logger            *zap.Logger
}

// New creates a new hub. It does not connect until Start.
func New(cfg Config) *Hub {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.Backoff == (BackoffPolicy{}) {
		cfg.Backoff = DefaultBackoffPolicy()
	}

	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = 256
	}

	limiter := ratelimit.New(clock)
	limiter.SetWindow(topicServerMetrics, cfg.MetricsWindow)
	limiter.SetWindow(topicLiveOdds, cfg.OddsWindow)

	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		url:     cfg.URL,
		logger:  cfg.Logger,
		config:  cfg,
		backoff: cfg.Backoff,
		clock:   clock,
		state:   newTopicState(cfg.Logger, limiter),
		events:  make(chan types.Envelope, cfg.MessageBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the connection loop and the keepalive pinger.
func (h *Hub) Start() error {
	h.logger.Info("event-hub-starting", zap.String("url", h.url))

	h.wg.Add(2)
	go h.runLoop()
	go h.pingLoop()

	return nil
}

// State returns the current connection state.
func (h *Hub) State() ConnState {
	return ConnState(h.connState.Load())
}

func (h *Hub) setState(s ConnState) {
	h.connState.Store(int32(s))
	if s == StateConnected {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

// runLoop drives the state machine: connect, read until the connection
// drops, reconnect after a backoff delay. Consecutive dial failures
// grow the delay; any successful connection resets the count.
func (h *Hub) runLoop() {
	defer h.wg.Done()

	failures := 0

	for {
		if h.intentionalClose.Load() || h.ctx.Err() != nil {
			return
		}

		h.setState(StateConnecting)

		err := h.connect(h.ctx)
		if err != nil {
			failures++
			h.setState(StateDisconnected)
			ReconnectFailuresTotal.Inc()

			delay := h.backoff.Delay(failures)
			h.logger.Warn("connect-failed",
				zap.Error(err),
				zap.Int("consecutive-failures", failures),
				zap.Duration("backoff", delay))

			select {
			case <-h.clock.After(delay):
			case <-h.ctx.Done():
				return
			}
			continue
		}

		failures = 0
		h.setState(StateConnected)
		h.logger.Info("event-hub-connected")

		h.readUntilClosed()

		h.connMu.Lock()
		if h.conn != nil {
			h.conn.Close()
			h.conn = nil
		}
		h.connMu.Unlock()

		if h.intentionalClose.Load() || h.ctx.Err() != nil {
			return
		}

		h.setState(StateDisconnected)
		ReconnectAttemptsTotal.Inc()
		h.logger.Warn("connection-lost-initiating-reconnect")
	}
}

// connect establishes the WebSocket connection.
func (h *Hub) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: h.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, h.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		now := h.clock.Now().Unix()
		h.lastPongTime.Store(now)
		LastPongTimestamp.Set(float64(now))
		return nil
	})

	h.connMu.Lock()
	h.conn = conn
	h.connMu.Unlock()

	now := h.clock.Now().Unix()
	h.lastPongTime.Store(now)
	LastPongTimestamp.Set(float64(now))

	return nil
}

// readUntilClosed reads and dispatches messages until the connection
// drops. It never panics out of the read path: a malformed message is
// logged and dropped without affecting connection state.
func (h *Hub) readUntilClosed() {
	h.connMu.RLock()
	conn := h.conn
	h.connMu.RUnlock()

	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !h.intentionalClose.Load() {
				h.logger.Warn("read-error", zap.Error(err))
			}
			return
		}

		h.handleMessage(message)
	}
}

// handleMessage decodes and dispatches a single raw message.
func (h *Hub) handleMessage(message []byte) {
	var env types.Envelope
	err := json.Unmarshal(message, &env)
	if err != nil {
		preview := string(message)
		if len(preview) > 100 {
			preview = preview[:100]
		}
		h.logger.Debug("unparseable-message",
			zap.Error(err),
			zap.Int("bytes", len(message)),
			zap.String("preview", preview))
		MessagesDroppedTotal.WithLabelValues("unparseable").Inc()
		return
	}

	MessagesReceivedTotal.WithLabelValues(string(env.Type)).Inc()
	h.dispatch(&env)
}

// dispatch folds an envelope into topic state and, when it produced an
// observable change, forwards it to observers without blocking.
func (h *Hub) dispatch(env *types.Envelope) {
	applied := h.state.apply(env)
	if !applied {
		return
	}

	select {
	case h.events <- *env:
	default:
		h.logger.Warn("event-channel-full", zap.String("type", string(env.Type)))
		MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// PublishLocal feeds an envelope through the same per-topic pipeline
// as wire messages. Used by in-process producers such as the
// integrity validator's report push; it never blocks.
func (h *Hub) PublishLocal(env *types.Envelope) {
	h.dispatch(env)
}

// pingLoop sends periodic PING control frames while connected. A
// stalled-but-open connection is not torn down here; the pong age is
// only surfaced via LastPongTime.
func (h *Hub) pingLoop() {
	defer h.wg.Done()

	ticker := h.clock.NewTicker(h.pingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.Chan():
			if h.State() != StateConnected {
				continue
			}

			h.connMu.RLock()
			conn := h.conn
			h.connMu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				h.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

func (h *Hub) pingInterval() time.Duration {
	if h.config.PingInterval > 0 {
		return h.config.PingInterval
	}
	return 10 * time.Second
}

// LastPongTime returns the Unix timestamp of the last received pong.
func (h *Hub) LastPongTime() int64 {
	return h.lastPongTime.Load()
}

// Events returns the observer channel of applied envelopes. The
// channel is never closed; observers stop consuming on their own
// shutdown signal.
func (h *Hub) Events() <-chan types.Envelope {
	return h.events
}

// OnDashboardInvalidate registers the callback invoked when the
// dispatcher signals that cached aggregate views are stale.
func (h *Hub) OnDashboardInvalidate(fn func()) {
	h.state.setInvalidateFunc(fn)
}

// CurrentRound returns the last-known round for a duration class.
func (h *Hub) CurrentRound(duration int) *types.Round {
	return h.state.currentRound(duration)
}

// RecentBalanceEvents returns the bounded recent balance updates,
// newest first.
func (h *Hub) RecentBalanceEvents() []types.BalanceUpdate {
	return h.state.recentBalanceEvents()
}

// RecentAgentActivity returns the bounded recent agent activity,
// newest first.
func (h *Hub) RecentAgentActivity() []types.AgentActivity {
	return h.state.recentAgentActivity()
}

// LastServerMetrics returns the last applied server metrics snapshot.
func (h *Hub) LastServerMetrics() *types.ServerMetrics {
	return h.state.lastServerMetrics()
}

// LastLiveOdds returns the last applied odds snapshot for a duration.
func (h *Hub) LastLiveOdds(duration int) *types.LiveOddsSnapshot {
	return h.state.lastLiveOdds(duration)
}

// LastSyncStatus returns the dispatcher's last relayed sync status.
func (h *Hub) LastSyncStatus() *types.RoundSyncStatus {
	return h.state.lastSyncStatus()
}

// LastValidationReport returns the last applied validation report.
func (h *Hub) LastValidationReport() *types.ValidationReport {
	return h.state.lastReport()
}

// Close shuts the hub down and suppresses reconnection. The
// intentional-close flag is set before the connection is closed so the
// read loop can tell teardown from a transport fault. The observer
// channel is left open: in-process producers may still publish during
// teardown, and closing it under them would panic the process.
func (h *Hub) Close() error {
	h.logger.Info("closing-event-hub")

	h.intentionalClose.Store(true)
	h.cancel()

	h.connMu.RLock()
	if h.conn != nil {
		h.conn.Close()
	}
	h.connMu.RUnlock()

	h.wg.Wait()

	h.setState(StateDisconnected)

	h.logger.Info("event-hub-closed")

	return nil
}
