package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation.
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

	planDuration     *prometheus.HistogramVec
	arrangements     *prometheus.CounterVec
	workloadIncrease prometheus.Counter
	autoMarked       prometheus.Counter
	queueJobs        *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	planDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arrangement_plan_duration_seconds",
		Help:    "Time spent planning substitutes for one absence",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})

	arrangements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arrangements_created_total",
		Help: "Arrangement rows written by status and match quality",
	}, []string{"status", "quality"})

	workloadIncrease := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workload_increments_total",
		Help: "Substitutions credited to teacher workload counters",
	})

	autoMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_auto_marked_total",
		Help: "Teachers marked absent by the auto-marker",
	})

	queueJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_queue_jobs_total",
		Help: "Planning jobs processed by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		planDuration, arrangements, workloadIncrease, autoMarked, queueJobs, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		planDuration:     planDuration,
		arrangements:     arrangements,
		workloadIncrease: workloadIncrease,
		autoMarked:       autoMarked,
		queueJobs:        queueJobs,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

// ObservePlan records one planning run. outcome is created, existing, or failed.
func (m *MetricsService) ObservePlan(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.planDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordArrangements counts written rows by status and quality and credits workload.
func (m *MetricsService) RecordArrangements(records []models.Arrangement) {
	if m == nil {
		return
	}
	for _, rec := range records {
		m.arrangements.WithLabelValues(string(rec.Status), string(rec.MatchQuality)).Inc()
		if rec.Covered() {
			m.workloadIncrease.Inc()
		}
	}
}

// RecordAutoMarked counts teachers marked absent automatically.
func (m *MetricsService) RecordAutoMarked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoMarked.Add(float64(n))
}

// RecordQueueJob counts a processed planning job.
func (m *MetricsService) RecordQueueJob(result string) {
	if m == nil {
		return
	}
	m.queueJobs.WithLabelValues(result).Inc()
}
