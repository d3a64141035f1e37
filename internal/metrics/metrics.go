// Package metrics holds the Prometheus collectors of the credits sync layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ecogarden"

// Refresh outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
	OutcomeSkipped   = "skipped"
)

var Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "refreshes_total",
	Help:      "Authoritative re-fetches by trigger and outcome.",
}, []string{"trigger", "outcome"})

var RefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "refresh_duration_seconds",
	Help:      "Duration of a full balance and garden re-fetch.",
	Buckets:   prometheus.DefBuckets,
})

var Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "mutations_total",
	Help:      "Earn, spend and water operations by outcome.",
}, []string{"operation", "outcome"})

var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "precondition_rejections_total",
	Help:      "Mutations rejected locally before any network call.",
}, []string{"operation"})

var Adoptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "cache_adoptions_total",
	Help:      "Snapshot totals adopted from other processes, by detection source.",
}, []string{"source"})

var TotalCredits = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "credits",
	Name:      "total",
	Help:      "Current credit total of the synced user.",
})

var SnapshotRevision = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "cache",
	Name:      "revision",
	Help:      "Latest cache revision written or adopted by this process.",
})

var GardenLevel = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "garden",
	Name:      "level",
	Help:      "Server-reported garden level of the synced user.",
})

var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "jobs",
	Name:      "runs_total",
	Help:      "Scheduled job executions by job and outcome.",
}, []string{"job", "outcome"})

// ObserveRefresh records one refresh attempt
func ObserveRefresh(trigger, outcome string, elapsed time.Duration) {
	Refreshes.WithLabelValues(trigger, outcome).Inc()
	if outcome == OutcomeSuccess {
		RefreshLatency.Observe(elapsed.Seconds())
	}
}
