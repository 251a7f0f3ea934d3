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
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordTransition(to string)
	RecordTransitionRejected(operation, reason string)
	RecordNotification(notificationType string)
	RecordNotificationFailure(notificationType string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordCleanupDeleted(target string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	transitions      *prometheus.CounterVec
	transitionReject *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	notificationFail *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	cleanupDeleted   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_request_transitions_total",
			Help: "スキルリクエストの状態遷移数（遷移先別）",
		}, []string{"to"}),
		transitionReject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_request_transitions_rejected_total",
			Help: "拒否されたスキルリクエスト操作数（操作・理由別）",
		}, []string{"operation", "reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_notifications_total",
			Help: "作成された通知数（種類別）",
		}, []string{"type"}),
		notificationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_notification_failures_total",
			Help: "作成に失敗した通知数（種類別）",
		}, []string{"type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillswap_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_cleanup_deleted_total",
			Help: "クリーンアップで削除されたレコード数（対象別）",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.transitions,
		c.transitionReject,
		c.notifications,
		c.notificationFail,
		c.httpStatus,
		c.requestLatency,
		c.cleanupDeleted,
	)

	return c
}

// RecordTransition は成功した状態遷移を記録する。
func (c *Collector) RecordTransition(to string) {
	c.transitions.WithLabelValues(to).Inc()
}

// RecordTransitionRejected は拒否された操作を記録する。
func (c *Collector) RecordTransitionRejected(operation, reason string) {
	c.transitionReject.WithLabelValues(operation, reason).Inc()
}

// RecordNotification は通知の作成を記録する。
func (c *Collector) RecordNotification(notificationType string) {
	c.notifications.WithLabelValues(notificationType).Inc()
}

// RecordNotificationFailure は通知の作成失敗を記録する。
func (c *Collector) RecordNotificationFailure(notificationType string) {
	c.notificationFail.WithLabelValues(notificationType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordCleanupDeleted はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanupDeleted(target string, count int64) {
	c.cleanupDeleted.WithLabelValues(target).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordTransition(string)                 {}
func (Nop) RecordTransitionRejected(string, string) {}
func (Nop) RecordNotification(string)               {}
func (Nop) RecordNotificationFailure(string)        {}
func (Nop) RecordHTTPStatus(int)                    {}
func (Nop) RecordRequestLatency(time.Duration)      {}
func (Nop) RecordCleanupDeleted(string, int64)      {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
