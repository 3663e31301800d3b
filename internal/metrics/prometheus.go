package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the schedule service

var (
	// Upstream API metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_api_calls_total",
			Help: "Total number of upstream sports API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitrivals_api_call_duration_seconds",
			Help:    "Duration of upstream API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_api_retries_total",
			Help: "Total number of retried upstream requests",
		},
		[]string{"endpoint", "reason"},
	)

	DecodeShapeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_decode_shape_total",
			Help: "Schedule payloads decoded, by envelope shape",
		},
		[]string{"league", "shape"},
	)

	// Pipeline metrics
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_schedule_fallbacks_total",
			Help: "Total number of schedule requests answered with mock data",
		},
		[]string{"league", "reason"},
	)

	GamesNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_games_normalized_total",
			Help: "Total number of upstream records normalized into games",
		},
		[]string{"league"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitrivals_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitrivals_cache_hits_total",
			Help: "Total number of schedule cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitrivals_cache_misses_total",
			Help: "Total number of schedule cache misses",
		},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitrivals_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	LiveUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_live_updates_total",
			Help: "Total number of live score updates applied",
		},
		[]string{"league", "status"},
	)

	VotesGraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitrivals_votes_graded_total",
			Help: "Total number of votes graded after a final score",
		},
	)

	// Websocket metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hitrivals_websocket_clients",
			Help: "Number of connected live score websocket clients",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitrivals_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hitrivals_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hitrivals_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordRetry records a retried upstream request
func RecordRetry(endpoint, reason string) {
	APIRetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordDecode records which envelope shape a payload decoded as
func RecordDecode(league, shape string) {
	DecodeShapeTotal.WithLabelValues(league, shape).Inc()
}

// RecordFallback records a schedule answered from mock data
func RecordFallback(league, reason string) {
	FallbacksTotal.WithLabelValues(league, reason).Inc()
}

// RecordNormalized records the number of games produced by one normalization
func RecordNormalized(league string, count int) {
	GamesNormalized.WithLabelValues(league).Add(float64(count))
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordLiveUpdate records an applied live score
func RecordLiveUpdate(league, status string) {
	LiveUpdatesTotal.WithLabelValues(league, status).Inc()
}

// RecordVotesGraded records graded votes
func RecordVotesGraded(n int64) {
	VotesGraded.Add(float64(n))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
