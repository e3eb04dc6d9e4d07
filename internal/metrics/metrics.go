// Package metrics exposes Prometheus counters for pillar resolution.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal *prometheus.CounterVec
	fetchesTotal     *prometheus.CounterVec
	cacheOpsTotal    *prometheus.CounterVec

	registerOnce sync.Once
)

// Init registers all metrics on the default registry. Safe to call more
// than once; registration happens on the first call only.
func Init() {
	registerOnce.Do(func() {
		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultpillar_resolutions_total",
				Help: "Total number of per-minion pillar resolutions",
			},
			[]string{"status"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultpillar_secret_fetches_total",
				Help: "Total number of Vault secret fetches by outcome",
			},
			[]string{"outcome"},
		)

		cacheOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultpillar_cache_operations_total",
				Help: "Total number of cache operations by result",
			},
			[]string{"result"},
		)
	})
}

// RecordResolution counts a completed resolution; status is "ok" or "error".
func RecordResolution(status string) {
	if resolutionsTotal != nil {
		resolutionsTotal.WithLabelValues(status).Inc()
	}
}

// RecordFetch counts a Vault fetch; outcome is "ok", "not_found" or "error".
func RecordFetch(outcome string) {
	if fetchesTotal != nil {
		fetchesTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordCache counts a cache operation; result is "hit", "miss" or "error".
func RecordCache(result string) {
	if cacheOpsTotal != nil {
		cacheOpsTotal.WithLabelValues(result).Inc()
	}
}
