package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Economy
	packsOpened       *prometheus.CounterVec
	cardsDrawn        *prometheus.CounterVec
	coinsCredited     *prometheus.CounterVec
	coinsDebited      *prometheus.CounterVec
	gamesFinished     *prometheus.CounterVec
	challenges        *prometheus.CounterVec
	pendingChallenges prometheus.Gauge
	ledgerTx          *prometheus.CounterVec

	// Catalog
	poolResolutions *prometheus.CounterVec
	cachedPoolSets  prometheus.Gauge
	upstreamCalls   *prometheus.CounterVec
	upstreamRetries *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec

	// Background work
	queueDepth  prometheus.Gauge
	queueErrors prometheus.Counter
	jobs        *prometheus.CounterVec
	jobLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	rateLimited         prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pokepack",
		subsystem:        "",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.packsOpened = m.counterVec("packs_opened_total", "Packs opened by origin (purchase or spin)", "origin")
	m.cardsDrawn = m.counterVec("cards_drawn_total", "Cards drawn by rarity bucket", "bucket")
	m.coinsCredited = m.counterVec("coins_credited_total", "Coins granted by source", "source")
	m.coinsDebited = m.counterVec("coins_debited_total", "Coins removed by source", "source")
	m.gamesFinished = m.counterVec("games_finished_total", "Mini-game submissions by game and result", "game", "result")
	m.challenges = m.counterVec("silhouette_challenges_total", "Silhouette challenge lifecycle events", "event")
	m.pendingChallenges = m.gauge("silhouette_challenges_pending", "Challenges currently held by the registry")
	m.ledgerTx = m.counterVec("ledger_transactions_total", "Ledger transactions by operation and result", "operation", "result")

	m.poolResolutions = m.counterVec("pool_resolutions_total", "Rarity pool lookups by the layer that answered", "source")
	m.cachedPoolSets = m.gauge("pool_cache_sets", "Sets currently held in the in-memory pool cache")
	m.upstreamCalls = m.counterVec("upstream_requests_total", "Upstream HTTP calls by service and outcome", "service", "outcome")
	m.upstreamRetries = m.counterVec("upstream_retries_total", "Upstream retry attempts by service", "service")
	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_request_duration_milliseconds",
		Help:      "Upstream call latency including retries",
		Buckets:   m.histogramBuckets,
	}, []string{"service"})

	m.queueDepth = m.gauge("job_queue_depth", "Background jobs waiting in the queue")
	m.queueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_queue_rejections_total",
		Help:      "Jobs rejected because the queue was full or closed",
	})
	m.jobs = m.counterVec("jobs_processed_total", "Background jobs by kind and status", "kind", "status")
	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_duration_milliseconds",
		Help:      "Background job duration",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint and error code", "endpoint", "method", "error_type")
	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter",
	})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordPackOpened counts one opened pack.
func RecordPackOpened(origin string) { globalManager.packsOpened.WithLabelValues(origin).Inc() }

// RecordCardsDrawn adds n cards drawn from bucket.
func RecordCardsDrawn(bucket string, n int) {
	globalManager.cardsDrawn.WithLabelValues(bucket).Add(float64(n))
}

// RecordCoins records a balance movement. Positive deltas count as credits.
func RecordCoins(source string, delta int64) {
	switch {
	case delta > 0:
		globalManager.coinsCredited.WithLabelValues(source).Add(float64(delta))
	case delta < 0:
		globalManager.coinsDebited.WithLabelValues(source).Add(float64(-delta))
	}
}

// RecordGameFinished counts one mini-game submission.
func RecordGameFinished(game, result string) {
	globalManager.gamesFinished.WithLabelValues(game, result).Inc()
}

// RecordChallenge counts a silhouette challenge event (started, correct, incorrect, invalid).
func RecordChallenge(event string) { globalManager.challenges.WithLabelValues(event).Inc() }

// UpdatePendingChallenges sets the number of live challenges.
func UpdatePendingChallenges(n int) { globalManager.pendingChallenges.Set(float64(n)) }

// RecordLedgerTx counts a ledger transaction outcome (commit or rollback).
func RecordLedgerTx(operation, result string) {
	globalManager.ledgerTx.WithLabelValues(operation, result).Inc()
}

// RecordPoolResolution counts which layer answered a pool lookup.
func RecordPoolResolution(source string) { globalManager.poolResolutions.WithLabelValues(source).Inc() }

// UpdateCachedPoolSets sets the number of sets held in memory.
func UpdateCachedPoolSets(n int) { globalManager.cachedPoolSets.Set(float64(n)) }

// RecordUpstream records one logical upstream call and its latency.
func RecordUpstream(service, outcome string, latencyMs float64) {
	globalManager.upstreamCalls.WithLabelValues(service, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(service).Observe(latencyMs)
}

// RecordUpstreamRetry counts one retry attempt.
func RecordUpstreamRetry(service string) { globalManager.upstreamRetries.WithLabelValues(service).Inc() }

// UpdateQueueDepth sets the number of waiting jobs.
func UpdateQueueDepth(n int) { globalManager.queueDepth.Set(float64(n)) }

// RecordQueueRejection counts a job the queue refused.
func RecordQueueRejection() { globalManager.queueErrors.Inc() }

// RecordJob counts a processed job and its duration.
func RecordJob(kind, status string, latencyMs float64) {
	globalManager.jobs.WithLabelValues(kind, status).Inc()
	globalManager.jobLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited counts a throttled request.
func RecordRateLimited() { globalManager.rateLimited.Inc() }

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
