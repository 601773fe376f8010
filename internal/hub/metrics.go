package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedGauge is 1 while the realtime connection is up.
	ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roundcore_hub_connected",
		Help: "Whether the realtime connection is currently established",
	})

	// ReconnectAttemptsTotal tracks reconnection cycles entered after a drop.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_hub_reconnect_attempts_total",
		Help: "Total number of reconnection cycles after a connection drop",
	})

	// ReconnectFailuresTotal tracks failed dial attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_hub_reconnect_failures_total",
		Help: "Total number of failed connection attempts",
	})

	// MessagesReceivedTotal tracks decoded messages by event type.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundcore_hub_messages_received_total",
			Help: "Total number of realtime messages received",
		},
		[]string{"event_type"},
	)

	// MessagesDroppedTotal tracks dropped messages by reason.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundcore_hub_messages_dropped_total",
			Help: "Total number of realtime messages dropped",
		},
		[]string{"reason"},
	)

	// ThrottledDropsTotal tracks updates dropped by per-topic throttling.
	ThrottledDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundcore_hub_throttled_drops_total",
			Help: "Total number of updates dropped by per-topic throttling",
		},
		[]string{"topic"},
	)

	// LastPongTimestamp is the Unix time of the last received pong. A
	// stalled-but-open connection shows up as a growing pong age; it is
	// never torn down from here.
	LastPongTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roundcore_hub_last_pong_timestamp_seconds",
		Help: "Unix timestamp of the last pong received on the realtime connection",
	})

	// DuplicateBalanceEventsTotal tracks balance updates rejected by
	// message-ID de-duplication.
	DuplicateBalanceEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_hub_duplicate_balance_events_total",
		Help: "Total number of balance updates rejected as duplicates",
	})
)
