// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー層から利用する。
type MetricsCollector interface {
	RecordAuthSuccess(method string)
	RecordAuthFailure(method, reason string)
	RecordTokenVerification(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordPostCreated()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess    *prometheus.CounterVec
	authFail       *prometheus.CounterVec
	tokenVerify    *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	postsCreated   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogapi_auth_success_total",
			Help: "認証成功の合計数（方式別: register, login, google）",
		}, []string{"method"}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogapi_auth_fail_total",
			Help: "認証失敗の合計数（方式・理由別）",
		}, []string{"method", "reason"}),
		tokenVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogapi_token_verification_total",
			Help: "トークン検証の合計数（結果別: valid, missing, expired, invalid）",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogapi_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blogapi_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogapi_posts_created_total",
			Help: "作成された記事の合計数",
		}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFail,
		c.tokenVerify,
		c.httpStatus,
		c.requestLatency,
		c.postsCreated,
	)

	return c
}

// RecordAuthSuccess は認証成功を記録する。
func (c *Collector) RecordAuthSuccess(method string) {
	c.authSuccess.WithLabelValues(method).Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure(method, reason string) {
	c.authFail.WithLabelValues(method, reason).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(outcome string) {
	c.tokenVerify.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPostCreated は記事の作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
