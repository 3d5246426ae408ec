package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Total number of requests issued to the commerce backend",
	}, []string{"method", "status"})

	BackendRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_latency_seconds",
		Help:    "Latency of commerce backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	StoreCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_cache_hits_total",
		Help: "Loads answered from an already-populated store slice",
	}, []string{"slice"})

	StoreCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_cache_misses_total",
		Help: "Loads that had to fetch from the backend",
	}, []string{"slice"})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart and bookmark mutations by kind",
	}, []string{"kind"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	StorageWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storage_writes_total",
		Help: "Total persisted-state writes",
	})

	StorageRecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_recoveries_total",
		Help: "Silent storage recoveries (corrupt envelope drops, quota truncations)",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
