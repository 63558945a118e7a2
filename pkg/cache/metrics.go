package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks snapshot cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks snapshot cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hrms_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		},
	)

	// CacheSize tracks cache size in bytes by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hrms_cache_size_bytes",
			Help: "Current size of the snapshot cache in bytes",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_cache_errors_total",
			Help: "Total number of snapshot cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
