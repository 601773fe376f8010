package integrity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal tracks validation checks by outcome.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundcore_integrity_checks_total",
			Help: "Total number of integrity checks performed",
		},
		[]string{"outcome"},
	)

	// FindingsTotal tracks findings by category and severity.
	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundcore_integrity_findings_total",
			Help: "Total number of integrity findings raised",
		},
		[]string{"category", "severity"},
	)

	// SweepDurationSeconds tracks comprehensive sweep latency.
	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roundcore_integrity_sweep_duration_seconds",
		Help:    "Duration of comprehensive validation sweeps",
		Buckets: prometheus.DefBuckets,
	})
)
