package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailsign"

// 署名覆盖同步结果
const (
	SyncResultSaved   = "saved"
	SyncResultDeleted = "deleted"
	SyncResultSkipped = "skipped"
	SyncResultFailed  = "failed"
)

// Metrics 监控指标
//
// 所有 Record 方法对 nil 接收者安全，未启用监控时可直接传 nil。
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 署名覆盖同步指标
	OverrideSyncTotal *prometheus.CounterVec // labels: event, action, result
	// 发信前署名替换
	SignatureSubstitutions *prometheus.CounterVec // labels: result (override|global)
	// 发信
	MailsSent *prometheus.CounterVec // labels: result

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 在默认注册表上创建监控指标
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWithRegistry 在指定注册表上创建监控指标，测试中可传入独立的 prometheus.NewRegistry()
func NewMetricsWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		OverrideSyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signature_override_sync_total",
				Help:      "Signature override mirroring operations by lifecycle event, action and result",
			},
			[]string{"event", "action", "result"},
		),

		SignatureSubstitutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signature_substitutions_total",
				Help:      "Signature configuration resolved before sending, by source",
			},
			[]string{"source"},
		),

		MailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mails_sent_total",
				Help:      "Outbound mails by delivery result",
			},
			[]string{"result"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_blocks_total",
				Help:      "Total number of requests rejected by rate limiting",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordOverrideSync 记录一次署名覆盖同步
func (m *Metrics) RecordOverrideSync(event, action, result string) {
	if m == nil {
		return
	}
	m.OverrideSyncTotal.WithLabelValues(event, action, result).Inc()
}

// RecordSubstitution 记录发信使用的署名来源：override 或 global
func (m *Metrics) RecordSubstitution(source string) {
	if m == nil {
		return
	}
	m.SignatureSubstitutions.WithLabelValues(source).Inc()
}

// RecordMailSent 记录发信结果
func (m *Metrics) RecordMailSent(result string) {
	if m == nil {
		return
	}
	m.MailsSent.WithLabelValues(result).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	if m == nil {
		return
	}
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
