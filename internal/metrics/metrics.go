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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordOAuthExchangeSuccess()
	RecordOAuthExchangeFailure(reason string)
	RecordSourceCreated(sourceType string)
	RecordHTTPStatus(statusCode int)
	RecordInvoicePageLatency(duration time.Duration)
	RecordInvoicesServed(count int)
	RecordSessionsPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	oauthExchangeSuccess prometheus.Counter
	oauthExchangeFail    *prometheus.CounterVec
	sourcesCreated       *prometheus.CounterVec
	httpStatus           *prometheus.CounterVec
	invoicePageLatency   prometheus.Histogram
	invoicesServed       prometheus.Counter
	sessionsPurged       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		oauthExchangeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicer_oauth_exchange_success_total",
			Help: "OAuthトークン交換成功の合計数",
		}),
		oauthExchangeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_oauth_exchange_fail_total",
			Help: "OAuthトークン交換失敗の合計数（理由別）",
		}, []string{"reason"}),
		sourcesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_sources_created_total",
			Help: "接続されたソースの合計数（種別別）",
		}, []string{"source_type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		invoicePageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoicer_invoice_page_latency_seconds",
			Help:    "請求書フィード1ページ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		invoicesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicer_invoices_served_total",
			Help: "フィードで返却された請求書の合計数",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicer_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.oauthExchangeSuccess,
		c.oauthExchangeFail,
		c.sourcesCreated,
		c.httpStatus,
		c.invoicePageLatency,
		c.invoicesServed,
		c.sessionsPurged,
	)

	return c
}

// RecordOAuthExchangeSuccess はトークン交換成功を記録する。
func (c *Collector) RecordOAuthExchangeSuccess() {
	c.oauthExchangeSuccess.Inc()
}

// RecordOAuthExchangeFailure はトークン交換失敗を理由付きで記録する。
func (c *Collector) RecordOAuthExchangeFailure(reason string) {
	c.oauthExchangeFail.WithLabelValues(reason).Inc()
}

// RecordSourceCreated はソース接続を記録する。
func (c *Collector) RecordSourceCreated(sourceType string) {
	c.sourcesCreated.WithLabelValues(sourceType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordInvoicePageLatency はフィード1ページ取得のレイテンシを記録する。
func (c *Collector) RecordInvoicePageLatency(duration time.Duration) {
	c.invoicePageLatency.Observe(duration.Seconds())
}

// RecordInvoicesServed は返却された請求書数を記録する。
func (c *Collector) RecordInvoicesServed(count int) {
	c.invoicesServed.Add(float64(count))
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
