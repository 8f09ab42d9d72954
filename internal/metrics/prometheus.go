// Package metrics 基于Prometheus的业务指标收集
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PrometheusMetrics Prometheus指标收集器
// 收集HTTP请求、LLM调用、SQL执行、路由分类等关键业务指标
type PrometheusMetrics struct {
	// HTTP请求相关指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	llmRequestsTotal     *prometheus.CounterVec
	llmRequestDuration   prometheus.Histogram
	sqlExecutionsTotal   *prometheus.CounterVec
	sqlExecutionDuration prometheus.Histogram
	routeDecisionsTotal  *prometheus.CounterVec

	// 注册器
	registry *prometheus.Registry

	logger *zap.Logger
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Namespace string // 指标命名空间
	Subsystem string // 指标子系统
}

// DefaultMetricsConfig 默认指标配置
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "sqlroute",
		Subsystem: "api",
	}
}

// NewPrometheusMetrics 创建Prometheus指标收集器
func NewPrometheusMetrics(config *MetricsConfig, logger *zap.Logger) *PrometheusMetrics {
	if config == nil {
		config = DefaultMetricsConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pm.llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM chat-completion requests",
		},
		[]string{"status"},
	)

	pm.llmRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request latency distribution",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	pm.sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "sql_executions_total",
			Help:      "Total number of executed model-generated SQL queries",
		},
		[]string{"status"},
	)

	pm.sqlExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "sql_execution_duration_seconds",
			Help:      "SQL execution latency distribution",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)

	pm.routeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "route_decisions_total",
			Help:      "Total number of semantic route decisions, including no-match",
		},
		[]string{"route"},
	)

	pm.registry.MustRegister(
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.llmRequestsTotal,
		pm.llmRequestDuration,
		pm.sqlExecutionsTotal,
		pm.sqlExecutionDuration,
		pm.routeDecisionsTotal,
	)

	return pm
}

// RecordLLMRequest 记录一次LLM调用
func (pm *PrometheusMetrics) RecordLLMRequest(status string, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.llmRequestsTotal.WithLabelValues(status).Inc()
	pm.llmRequestDuration.Observe(duration.Seconds())
}

// RecordSQLExecution 记录一次SQL执行
func (pm *PrometheusMetrics) RecordSQLExecution(status string, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.sqlExecutionsTotal.WithLabelValues(status).Inc()
	pm.sqlExecutionDuration.Observe(duration.Seconds())
}

// RecordRouteDecision 记录一次路由分类决策
// 未命中任何路由时以"none"计数
func (pm *PrometheusMetrics) RecordRouteDecision(route string) {
	if pm == nil {
		return
	}
	if route == "" {
		route = "none"
	}
	pm.routeDecisionsTotal.WithLabelValues(route).Inc()
}

// GinMiddleware 返回记录HTTP指标的gin中间件
func (pm *PrometheusMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		pm.httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		pm.httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回/metrics端点的HTTP处理器
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}
