package round

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal tracks clock recomputations.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_clock_ticks_total",
		Help: "Total number of round clock recomputations",
	})

	// WarningsFiredTotal tracks low-time warnings fired.
	WarningsFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_clock_warnings_fired_total",
		Help: "Total number of low-time warnings fired",
	})

	// ConfigDefectsTotal tracks rounds with invalid durations.
	ConfigDefectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_clock_config_defects_total",
		Help: "Total number of rounds rejected for invalid duration",
	})

	// SnapshotsDroppedTotal tracks snapshots dropped on a full channel.
	SnapshotsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundcore_clock_snapshots_dropped_total",
		Help: "Total number of countdown snapshots dropped due to slow consumers",
	})
)
