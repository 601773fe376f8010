package hub

import (
	"sync"

	"github.com/wingolabs/roundcore/pkg/ratelimit"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// Bounds on per-topic state. Memory stays constant regardless of how
// long the connection lives or how bursty the dispatcher gets.
const (
	maxBalanceEvents  = 10
	maxSeenBalanceIDs = 100
	maxAgentActivity  = 20
)

// Throttled topic names used with the rate limiter.
const (
	topicServerMetrics = "server-metrics"
	topicLiveOdds      = "live-odds"
)

// topicState holds the last-known value per topic plus the bounded
// recent lists. All methods are safe for concurrent use.
type topicState struct {
	logger  *zap.Logger
	limiter *ratelimit.Limiter

	mu            sync.RWMutex
	currentRounds map[int]*types.Round // keyed by duration class
	balanceEvents []types.BalanceUpdate
	seenIDs       map[string]struct{}
	seenOrder     []string // FIFO eviction for seenIDs
	agentActivity []types.AgentActivity
	serverMetrics *types.ServerMetrics
	liveOdds      map[int]*types.LiveOddsSnapshot
	syncStatus    *types.RoundSyncStatus
	report        *types.ValidationReport
	invalidateFn  func()
}

func newTopicState(logger *zap.Logger, limiter *ratelimit.Limiter) *topicState {
	return &topicState{
		logger:        logger,
		limiter:       limiter,
		currentRounds: make(map[int]*types.Round),
		seenIDs:       make(map[string]struct{}),
		liveOdds:      make(map[int]*types.LiveOddsSnapshot),
	}
}

// apply folds an envelope into per-topic state. It returns true when
// the envelope produced an observable change; duplicates and throttled
// updates return false and are dropped, not queued.
func (s *topicState) apply(env *types.Envelope) bool {
	switch env.Type {
	case types.EventRoundStarted, types.EventRoundEnded:
		return s.applyRound(env)
	case types.EventBalanceChanged:
		return s.applyBalance(env)
	case types.EventAgentActivity:
		return s.applyActivity(env)
	case types.EventServerMetrics:
		return s.applyServerMetrics(env)
	case types.EventLiveOdds:
		return s.applyLiveOdds(env)
	case types.EventAdminInvalidate:
		return s.applyInvalidate()
	case types.EventRoundSyncStatus:
		return s.applySyncStatus(env)
	case types.EventValidationReport:
		return s.applyReport(env)
	default:
		s.logger.Debug("unknown-event-type", zap.String("type", string(env.Type)))
		MessagesDroppedTotal.WithLabelValues("unknown_type").Inc()
		return false
	}
}

// applyRound replaces the per-duration current round snapshot.
// Last-writer-wins, no merge.
func (s *topicState) applyRound(env *types.Envelope) bool {
	if env.Game == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	duration := env.Duration
	if duration == 0 {
		duration = env.Game.Duration
	}

	s.mu.Lock()
	s.currentRounds[duration] = env.Game
	s.mu.Unlock()

	return true
}

// applyBalance prepends a balance update after de-duplicating by
// message ID against the bounded seen-ID set.
func (s *topicState) applyBalance(env *types.Envelope) bool {
	update := env.BalanceUpdate
	if update == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.seenIDs[update.ID]; seen {
		DuplicateBalanceEventsTotal.Inc()
		return false
	}

	s.seenIDs[update.ID] = struct{}{}
	s.seenOrder = append(s.seenOrder, update.ID)
	if len(s.seenOrder) > maxSeenBalanceIDs {
		oldest := s.seenOrder[0]
		s.seenOrder = s.seenOrder[1:]
		delete(s.seenIDs, oldest)
	}

	s.balanceEvents = append([]types.BalanceUpdate{*update}, s.balanceEvents...)
	if len(s.balanceEvents) > maxBalanceEvents {
		s.balanceEvents = s.balanceEvents[:maxBalanceEvents]
	}

	return true
}

func (s *topicState) applyActivity(env *types.Envelope) bool {
	if env.Activity == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	s.mu.Lock()
	s.agentActivity = append([]types.AgentActivity{*env.Activity}, s.agentActivity...)
	if len(s.agentActivity) > maxAgentActivity {
		s.agentActivity = s.agentActivity[:maxAgentActivity]
	}
	s.mu.Unlock()

	return true
}

func (s *topicState) applyServerMetrics(env *types.Envelope) bool {
	if env.Metrics == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	if !s.limiter.Allow(topicServerMetrics) {
		ThrottledDropsTotal.WithLabelValues(topicServerMetrics).Inc()
		return false
	}

	s.mu.Lock()
	s.serverMetrics = env.Metrics
	s.mu.Unlock()

	return true
}

func (s *topicState) applyLiveOdds(env *types.Envelope) bool {
	if env.LiveBets == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	if !s.limiter.Allow(topicLiveOdds) {
		ThrottledDropsTotal.WithLabelValues(topicLiveOdds).Inc()
		return false
	}

	s.mu.Lock()
	s.liveOdds[env.LiveBets.Duration] = env.LiveBets
	s.mu.Unlock()

	return true
}

// applyInvalidate signals the external collaborator that all cached
// aggregate views are stale. Invalidation itself is the collaborator's
// job; the hub only relays the signal.
func (s *topicState) applyInvalidate() bool {
	s.mu.RLock()
	fn := s.invalidateFn
	s.mu.RUnlock()

	if fn != nil {
		fn()
	}
	return true
}

func (s *topicState) applySyncStatus(env *types.Envelope) bool {
	if env.Status == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	s.mu.Lock()
	s.syncStatus = env.Status
	s.mu.Unlock()

	return true
}

func (s *topicState) applyReport(env *types.Envelope) bool {
	if env.Report == nil {
		MessagesDroppedTotal.WithLabelValues("missing_payload").Inc()
		return false
	}

	s.mu.Lock()
	s.report = env.Report
	s.mu.Unlock()

	return true
}

func (s *topicState) setInvalidateFunc(fn func()) {
	s.mu.Lock()
	s.invalidateFn = fn
	s.mu.Unlock()
}

func (s *topicState) currentRound(duration int) *types.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRounds[duration]
}

func (s *topicState) recentBalanceEvents() []types.BalanceUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.BalanceUpdate, len(s.balanceEvents))
	copy(out, s.balanceEvents)
	return out
}

func (s *topicState) recentAgentActivity() []types.AgentActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AgentActivity, len(s.agentActivity))
	copy(out, s.agentActivity)
	return out
}

func (s *topicState) lastServerMetrics() *types.ServerMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverMetrics
}

func (s *topicState) lastLiveOdds(duration int) *types.LiveOddsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveOdds[duration]
}

func (s *topicState) lastSyncStatus() *types.RoundSyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncStatus
}

func (s *topicState) lastReport() *types.ValidationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}
