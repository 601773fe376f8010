package types

import (
	"time"
)

// EventType discriminates realtime event envelopes.
type EventType string

const (
	EventRoundStarted     EventType = "round-started"
	EventRoundEnded       EventType = "round-ended"
	EventBalanceChanged   EventType = "balance-changed"
	EventAgentActivity    EventType = "agent-activity"
	EventLiveOdds         EventType = "live-odds-snapshot"
	EventServerMetrics    EventType = "server-metrics"
	EventAdminInvalidate  EventType = "admin-dashboard-invalidate"
	EventRoundSyncStatus  EventType = "round-sync-status"
	EventValidationReport EventType = "validation-report"
)

// Envelope is the wire format for realtime events. Type selects which
// of the payload fields is populated.
type Envelope struct {
	Type          EventType         `json:"type"`
	Duration      int               `json:"duration,omitempty"`
	TimeRemaining int               `json:"timeRemaining,omitempty"` // server-pushed fallback, seconds
	Game          *Round            `json:"game,omitempty"`
	BalanceUpdate *BalanceUpdate    `json:"balanceUpdate,omitempty"`
	Activity      *AgentActivity    `json:"activity,omitempty"`
	LiveBets      *LiveOddsSnapshot `json:"liveBets,omitempty"`
	Metrics       *ServerMetrics    `json:"metrics,omitempty"`
	Status        *RoundSyncStatus  `json:"status,omitempty"`
	Report        *ValidationReport `json:"report,omitempty"`
}

// BalanceUpdate carries a single balance delta for an account.
// ID is unique per update and used for client-side de-duplication.
// IsBackfill marks historical replay that must not trigger live-only
// side effects.
type BalanceUpdate struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	Balance    float64   `json:"balance"`
	Delta      float64   `json:"delta"`
	Reason     string    `json:"reason"`
	IsBackfill bool      `json:"isBackfill"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AgentActivity describes a single agent action (deposit approved,
// commission paid, ...) relayed to operator views.
type AgentActivity struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agentId"`
	Action     string    `json:"action"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// LiveOddsSnapshot aggregates the live bet totals for one round.
type LiveOddsSnapshot struct {
	Duration  int                `json:"duration"`
	RoundID   string             `json:"roundId"`
	Totals    map[string]float64 `json:"totals"` // keyed by chosen value, e.g. "green", "5"
	BetCount  int                `json:"betCount"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ServerMetrics is a coarse snapshot of dispatcher-side load.
type ServerMetrics struct {
	ActiveConnections int       `json:"activeConnections"`
	OpenRounds        int       `json:"openRounds"`
	BetsPerMinute     float64   `json:"betsPerMinute"`
	CapturedAt        time.Time `json:"capturedAt"`
}

// RoundSyncStatus reports the dispatcher's round scheduling health per
// duration class. Produced out of process; this core only relays it.
type RoundSyncStatus struct {
	ActivePeriods map[int]string `json:"activePeriods"` // duration class -> current period id
	RecentErrors  []string       `json:"recentErrors"`
	Healthy       bool           `json:"healthy"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// FindingCategory classifies what a validation finding is about.
type FindingCategory string

const (
	CategoryBet         FindingCategory = "bet"
	CategoryPayout      FindingCategory = "payout"
	CategoryCommission  FindingCategory = "commission"
	CategoryBalance     FindingCategory = "balance"
	CategoryRoundResult FindingCategory = "round_result"
)

// Severity ranks a validation finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidationFinding records a detected mismatch between a stored
// aggregate and its independently recomputed expected value.
type ValidationFinding struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Category    FindingCategory `json:"category"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	Expected    string          `json:"expected"`
	Actual      string          `json:"actual"`
	EntityID    string          `json:"entityId"`
	AutoFixed   bool            `json:"autoFixed"`
}

// ValidationReport is the cumulative integrity report pushed to the
// validation-report topic and served to operator views.
type ValidationReport struct {
	TotalChecks  int64               `json:"totalChecks"`
	PassedChecks int64               `json:"passedChecks"`
	FailedChecks int64               `json:"failedChecks"`
	Healthy      bool                `json:"healthy"`
	Findings     []ValidationFinding `json:"findings"` // most recent, bounded
	GeneratedAt  time.Time           `json:"generatedAt"`
}
