package metrics

import "github.com/prometheus/client_golang/prometheus"

// Healthcheck Prometheus metrics.
var (
	HealthcheckRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passbolt",
			Name:      "healthcheck_runs_total",
			Help:      "Total number of healthcheck runs",
		},
		[]string{"trigger"}, // "api" / "cli"
	)

	HealthcheckRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "passbolt",
			Name:      "healthcheck_run_duration_seconds",
			Help:      "Duration of a full healthcheck run in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	VersionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passbolt",
			Name:      "version_cache_total",
			Help:      "Latest version lookups answered by the cache",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	VersionFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passbolt",
			Name:      "version_fetches_total",
			Help:      "Requests to the upstream release feed",
		},
		[]string{"status"}, // "success" / "error"
	)
)

var healthcheckMetricsRegistered bool

// RegisterHealthcheckMetrics registers healthcheck metrics. Must be called
// once from main.
func RegisterHealthcheckMetrics() {
	if healthcheckMetricsRegistered {
		return
	}
	prometheus.MustRegister(HealthcheckRunsTotal)
	prometheus.MustRegister(HealthcheckRunDuration)
	prometheus.MustRegister(VersionCacheTotal)
	prometheus.MustRegister(VersionFetchesTotal)
	healthcheckMetricsRegistered = true
}
