// Package metrics holds Prometheus instruments shared by the edge.  All
// collectors are registered with the global registry, so mounting
// promhttp.Handler() in cmd/web is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_resolutions_total",
			Help: "Routing decisions by kind.",
		}, []string{"decision"})

	LookupErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_lookup_errors_total",
			Help: "Binding lookups that failed or timed out (served fail-open).",
		})

	LookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edge_lookup_duration_seconds",
			Help:    "Latency of binding lookups that reached storage.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		})

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binding_cache_hits_total",
			Help: "Binding lookups answered from memory.",
		})

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binding_cache_misses_total",
			Help: "Binding lookups that went to storage.",
		})

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "binding_cache_entries",
			Help: "Hostnames currently held in the binding cache.",
		})

	CacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binding_cache_evict_total",
			Help: "Entries removed by TTL expiry or LRU pressure.",
		})

	Invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binding_invalidations_total",
			Help: "Explicit cache invalidations by scope (host, page, all).",
		}, []string{"scope"})

	SessionRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_refresh_total",
			Help: "Platform session refresh outcomes.",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		Resolutions,
		LookupErrors,
		LookupDuration,
		CacheHits,
		CacheMisses,
		CacheEntries,
		CacheEvictTotal,
		Invalidations,
		SessionRefresh,
	)
}
