package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the registry served on /api/metrics. A private registry keeps
	// collectors created in tests from colliding with the default one.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Custom histogram buckets for API response times ranging from milliseconds to 30+ seconds.
	// The webhook path includes a deliberate consistency delay, so the upper buckets matter.
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Content store client metrics (Sanity / Postgres mirror)
	ContentStoreRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Content store operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	ContentStoreRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of content store operations",
		},
		[]string{"operation", "status"},
	)

	// Cache Metrics
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	// Object storage client metrics (provider catalog)
	StorageRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_client_operation_duration_seconds",
			Help:    "Storage client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StorageRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_client_operation_total",
			Help: "Total number of storage client operations",
		},
		[]string{"operation", "status"},
	)

	// Business Metrics
	WebhookDeliveries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solovoro_webhook_deliveries_total",
			Help: "Content webhook deliveries by outcome",
		},
		[]string{"document_type", "outcome"},
	)

	StaleRoutesResolved = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solovoro_stale_routes_resolved",
			Help:    "Number of stale routes resolved per content change",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50, 100, 250},
		},
		[]string{"document_type"},
	)

	RevalidationCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solovoro_revalidation_calls_total",
			Help: "Frontend route revalidation calls by status",
		},
		[]string{"status"},
	)

	RevalidationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solovoro_revalidation_duration_seconds",
			Help:    "Frontend route revalidation call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"status"},
	)

	DiscoverRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solovoro_discover_requests_total",
			Help: "Provider discovery requests by status",
		},
		[]string{"status"},
	)

	MirrorSyncs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solovoro_mirror_syncs_total",
			Help: "Postgres content mirror syncs by mode and status",
		},
		[]string{"mode", "status"},
	)

	MirrorLastFullSync = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "solovoro_mirror_last_full_sync_timestamp_seconds",
			Help: "Unix time of the last successful full mirror sync",
		},
	)

	// 0 closed, 1 half-open, 2 open
	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solovoro_circuit_breaker_state",
			Help: "Circuit breaker state",
		},
		[]string{"breaker"},
	)

	// Infrastructure Metrics
	GoRoutines = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// Init registers the process collector and labels every series with the service name.
func Init(serviceName string) {
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ServiceInfo.WithLabelValues(serviceName).Set(1)
}

// ServiceInfo is a constant gauge carrying the service name label.
var ServiceInfo = factory.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "solovoro_service_info",
		Help: "Service metadata",
	},
	[]string{"service_name"},
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
