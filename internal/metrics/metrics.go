package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	outboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "frontdesk",
			Name:      "outbox_depth",
			Help:      "Pending check-in events awaiting delivery.",
		},
	)

	drainOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "drain_outcomes_total",
			Help:      "Drain attempts by outcome.",
		},
		[]string{"outcome"},
	)

	offlineState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "frontdesk",
			Name:      "offline",
			Help:      "1 while the terminal considers itself offline.",
		},
	)

	mergeRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "merge_recomputes_total",
			Help:      "Merged view recomputations.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, outboxDepth, drainOutcomes, offlineState, mergeRecomputes)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// SetOutboxDepth records the current queue length.
func SetOutboxDepth(depth int) {
	outboxDepth.Set(float64(depth))
}

// IncDrain records a drain attempt outcome (delivered, rejected, retained).
func IncDrain(outcome string) {
	drainOutcomes.WithLabelValues(outcome).Inc()
}

// SetOffline mirrors the connectivity flag.
func SetOffline(offline bool) {
	if offline {
		offlineState.Set(1)
		return
	}
	offlineState.Set(0)
}

// IncMergeRecompute counts a merged view recomputation.
func IncMergeRecompute() {
	mergeRecomputes.Inc()
}
