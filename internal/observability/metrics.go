package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	cacheEvents    *prometheus.CounterVec
	cacheSweeps    prometheus.Counter
	fallbackReuses prometheus.Counter
	recommendCalls *prometheus.CounterVec

	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	goalsReconciled   prometheus.Counter
	rateLimited       *prometheus.CounterVec

	dbStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init installs the process-wide metrics once. It returns nil when disabled,
// and every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// New builds a Metrics bound to its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sw_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "sw_api_inflight_requests",
			Help: "In-flight API requests.",
		}),

		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_llm_requests_total",
			Help: "LLM requests by model/endpoint/status.",
		}, []string{"model", "endpoint", "status"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sw_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model", "endpoint", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_llm_tokens_total",
			Help: "LLM tokens by model/kind.",
		}, []string{"model", "kind"}),

		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_recommend_cache_events_total",
			Help: "Recommendation cache events (hit, miss, coalesced, failure, store_error).",
		}, []string{"event"}),
		cacheSweeps: f.NewCounter(prometheus.CounterOpts{
			Name: "sw_recommend_cache_swept_total",
			Help: "Expired recommendation cache entries removed by the sweeper.",
		}),
		fallbackReuses: f.NewCounter(prometheus.CounterOpts{
			Name: "sw_recommend_fallback_reuse_total",
			Help: "Times a client reused its last recommended steps after a failure.",
		}),
		recommendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_recommend_requests_total",
			Help: "Recommendation requests by outcome.",
		}, []string{"outcome"}),

		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "sw_sessions_started_total",
			Help: "Sessions started.",
		}),
		sessionsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "sw_sessions_completed_total",
			Help: "Sessions marked complete.",
		}),
		goalsReconciled: f.NewCounter(prometheus.CounterOpts{
			Name: "sw_goals_reconciled_total",
			Help: "Predefined goals inserted during reconciliation.",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_rate_limited_total",
			Help: "Requests rejected by the per-user limiter, by tier.",
		}, []string{"tier"}),

		dbStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sw_db_stats",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "sw_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Name: "sw_redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, endpoint, status).Observe(dur.Seconds())
	}
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

// Cache events satisfy the recommendation cache's recorder.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("miss").Inc()
}

func (m *Metrics) CacheCoalesced() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("coalesced").Inc()
}

func (m *Metrics) CacheFailure() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("failure").Inc()
}

func (m *Metrics) CacheStoreError() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("store_error").Inc()
}

func (m *Metrics) AddCacheSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheSweeps.Add(float64(n))
}

func (m *Metrics) IncFallbackReuse() {
	if m == nil {
		return
	}
	m.fallbackReuses.Inc()
}

func (m *Metrics) IncRecommendation(outcome string) {
	if m == nil {
		return
	}
	m.recommendCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) IncSessionCompleted() {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

func (m *Metrics) AddGoalsReconciled(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.goalsReconciled.Add(float64(n))
}

func (m *Metrics) IncRateLimited(tier string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(tier).Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.dbStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
