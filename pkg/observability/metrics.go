package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the coherency core
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheBypass     prometheus.Counter
	InvalidatedKeys prometheus.Counter
	TagFanout       prometheus.Histogram

	// Repository metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec

	// View metrics
	ViewQueries  *prometheus.CounterVec
	ViewDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"kind"},
	)

	cacheMisses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"kind"},
	)

	cacheBypass := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_bypass_total",
			Help:      "Total number of cache operations short-circuited while the backend is unreachable",
		},
	)

	invalidatedKeys := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_keys_total",
			Help:      "Total number of cache keys removed by tag invalidation",
		},
	)

	tagFanout := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_tag_fanout",
			Help:      "Number of keys bearing a tag at invalidation time",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	dbOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_operations_total",
			Help:      "Total number of database operations",
		},
		[]string{"operation", "entity", "status"},
	)

	dbDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Database operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	viewQueries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_queries_total",
			Help:      "Total number of view projection reads",
		},
		[]string{"view", "source"},
	)

	viewDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_query_duration_seconds",
			Help:      "View projection computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		cacheHits,
		cacheMisses,
		cacheBypass,
		invalidatedKeys,
		tagFanout,
		dbOperations,
		dbDuration,
		viewQueries,
		viewDuration,
	)

	globalCollector = &Collector{
		registry:        registry,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
		CacheHits:       cacheHits,
		CacheMisses:     cacheMisses,
		CacheBypass:     cacheBypass,
		InvalidatedKeys: invalidatedKeys,
		TagFanout:       tagFanout,
		DBOperations:    dbOperations,
		DBDuration:      dbDuration,
		ViewQueries:     viewQueries,
		ViewDuration:    viewDuration,
	}

	return globalCollector
}

// ResetForTesting resets the global collector for testing purposes
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
