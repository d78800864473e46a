package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// VerificationsTotal counts verification attempts by outcome.
	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civiceye",
		Subsystem: "verification",
		Name:      "attempts_total",
		Help:      "Total number of verification attempts, labeled by outcome.",
	}, []string{"outcome"})

	// VerificationDurationSeconds is end-to-end time per verification attempt.
	VerificationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civiceye",
		Subsystem: "verification",
		Name:      "duration_seconds",
		Help:      "End-to-end time to run a verification attempt (scorer call + persistence).",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"outcome"})

	// VerificationsInFlight is the current number of running verification attempts.
	VerificationsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "civiceye",
		Subsystem: "verification",
		Name:      "in_flight",
		Help:      "Current number of verification attempts in flight.",
	})

	// ReportsSubmittedTotal counts accepted citizen submissions.
	ReportsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "civiceye",
		Subsystem: "reports",
		Name:      "submitted_total",
		Help:      "Total number of accepted citizen report submissions.",
	})
)

// Register registers civiceye metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			VerificationsTotal,
			VerificationDurationSeconds,
			VerificationsInFlight,
			ReportsSubmittedTotal,
		)
	})
}
