package analytics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharesession",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Session analytics events by type.",
		},
		[]string{"type", "category"},
	)
	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharesession",
			Subsystem: "transfer",
			Name:      "finished_total",
			Help:      "Finished transfers by direction and final status.",
		},
		[]string{"direction", "status"},
	)
	transferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharesession",
			Subsystem: "transfer",
			Name:      "bytes_total",
			Help:      "Attachment bytes moved by finished transfers.",
		},
		[]string{"direction"},
	)
	transferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sharesession",
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Time from first payload to final status.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"direction", "status"},
	)
)

// RegisterMetrics adds the session collectors to the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(eventsTotal, transfersTotal, transferBytes, transferDuration)
	})
}

func recordEvent(event Event) {
	eventsTotal.WithLabelValues(event.Type.String(), event.Category.String()).Inc()
}

func recordTransfer(category Category, status string, bytes int64, seconds float64) {
	direction := category.String()
	transfersTotal.WithLabelValues(direction, status).Inc()
	if bytes > 0 {
		transferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
	if seconds >= 0 {
		transferDuration.WithLabelValues(direction, status).Observe(seconds)
	}
}
