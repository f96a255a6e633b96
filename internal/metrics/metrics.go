// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordResolveOutcome(status string)
	RecordAccountCreated()
	RecordIdentifierAttached(kind string)
	RecordProfileOperation(op string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	resolveOutcome     *prometheus.CounterVec
	accountsCreated    prometheus.Counter
	identifierAttached *prometheus.CounterVec
	profileOps         *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolveOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idman_resolve_outcome_total",
			Help: "解決結果（found/not_found/conflict）別の合計数",
		}, []string{"status"}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "idman_accounts_created_total",
			Help: "作成されたアカウントの合計数",
		}),
		identifierAttached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idman_identifier_attached_total",
			Help: "既存アカウントにリンクされた識別子の種別別合計数",
		}, []string{"kind"}),
		profileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idman_profile_operations_total",
			Help: "プロフィール操作（create/update/delete）別の合計数",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.resolveOutcome,
		c.accountsCreated,
		c.identifierAttached,
		c.profileOps,
		c.httpStatus,
	)

	return c
}

// RecordResolveOutcome は解決結果を記録する。
func (c *Collector) RecordResolveOutcome(status string) {
	c.resolveOutcome.WithLabelValues(status).Inc()
}

// RecordAccountCreated はアカウント作成を記録する。
func (c *Collector) RecordAccountCreated() {
	c.accountsCreated.Inc()
}

// RecordIdentifierAttached は識別子リンクを記録する。
func (c *Collector) RecordIdentifierAttached(kind string) {
	c.identifierAttached.WithLabelValues(kind).Inc()
}

// RecordProfileOperation はプロフィール操作を記録する。
func (c *Collector) RecordProfileOperation(op string) {
	c.profileOps.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsに直接マウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
