package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// Generation outcomes used as metric labels.
const (
	OutcomeSuccess    = "success"
	OutcomePreview    = "preview"
	OutcomeInvalid    = "invalid_configuration"
	OutcomeInfeasible = "infeasible"
	OutcomeFailure    = "failure"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Observer
	sessionsGenerated  *prometheus.CounterVec
	exclusions         prometheus.Counter
	reviewsSkipped     *prometheus.CounterVec
	nulledReferences   prometheus.Counter
	conflictsDetected  *prometheus.CounterVec
	resolutionActions  *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	generationCount      uint64
}

// NewMetricsService registers core and planner Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_generation_runs_total",
			Help: "Schedule generation runs by outcome",
		}, []string{"outcome"}),
		sessionsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_sessions_generated_total",
			Help: "Sessions written by generation runs by session type",
		}, []string{"type"}),
		exclusions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_exclusions_total",
			Help: "Topics excluded by Reta Final mode",
		}),
		reviewsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_reviews_skipped_total",
			Help: "Review targets that were not scheduled, by reason",
		}, []string{"reason"}),
		nulledReferences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_topic_references_nulled_total",
			Help: "Session topic ids coerced to null because the topic no longer exists",
		}),
		conflictsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_conflicts_detected_total",
			Help: "Conflicts found by audits",
		}, []string{"type", "severity"}),
		resolutionActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_resolution_actions_total",
			Help: "Conflict resolution actions by type and status",
		}, []string{"type", "status"}),
	}

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})
	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_generation_duration_seconds",
		Help:    "Wall time of schedule generation runs",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})
	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite
	m.generationDuration = generationDuration

	registry.MustRegister(
		m.requestDuration, m.requestTotal, cacheLatency, cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration, goroutines,
		m.generationTotal, generationDuration, m.sessionsGenerated, m.exclusions, m.reviewsSkipped,
		m.nulledReferences, m.conflictsDetected, m.resolutionActions,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.generationCount, 1)
}

// RecordSchedule records what a successful run wrote.
func (m *MetricsService) RecordSchedule(byType map[models.SessionType]int, excluded int, skippedByReason map[string]int, nulled int) {
	if m == nil {
		return
	}
	for typ, n := range byType {
		m.sessionsGenerated.WithLabelValues(string(typ)).Add(float64(n))
	}
	m.exclusions.Add(float64(excluded))
	for reason, n := range skippedByReason {
		m.reviewsSkipped.WithLabelValues(reason).Add(float64(n))
	}
	m.nulledReferences.Add(float64(nulled))
}

// RecordConflicts counts audit findings.
func (m *MetricsService) RecordConflicts(conflicts []models.ScheduleConflict) {
	if m == nil {
		return
	}
	for _, c := range conflicts {
		m.conflictsDetected.WithLabelValues(string(c.Type), string(c.Severity)).Inc()
	}
}

// RecordResolution counts applied and failed resolution actions.
func (m *MetricsService) RecordResolution(actions []models.ResolutionAction) {
	if m == nil {
		return
	}
	for _, a := range actions {
		m.resolutionActions.WithLabelValues(string(a.Type), string(a.Status)).Inc()
	}
}

// Snapshot returns aggregated metrics.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		GenerationRuns:           atomic.LoadUint64(&m.generationCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
