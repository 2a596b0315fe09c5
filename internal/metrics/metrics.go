// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 会話集約とチャットセッションから利用する。
type MetricsCollector interface {
	RecordAggregationPass(duration time.Duration, conversations int)
	RecordListingSkipped(reason string)
	RecordPollCycle()
	RecordMessageSent()
	RecordSendFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	aggregationPasses    prometheus.Counter
	aggregationLatency   prometheus.Histogram
	conversationsEmitted prometheus.Counter
	listingsSkipped      *prometheus.CounterVec
	pollCycles           prometheus.Counter
	messagesSent         prometheus.Counter
	sendFailures         prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		aggregationPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listigo_aggregation_passes_total",
			Help: "会話集約パスの実行回数",
		}),
		aggregationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "listigo_aggregation_latency_seconds",
			Help:    "会話集約パスのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		conversationsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listigo_conversations_emitted_total",
			Help: "集約パスが出力した会話の合計数",
		}),
		listingsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listigo_listings_skipped_total",
			Help: "集約中にスキップされた出品の理由別合計数",
		}, []string{"reason"}),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listigo_chat_poll_cycles_total",
			Help: "チャットのポーリング実行回数",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listigo_messages_sent_total",
			Help: "送信に成功したメッセージの合計数",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listigo_message_send_failures_total",
			Help: "送信に失敗したメッセージの合計数",
		}),
	}

	reg.MustRegister(
		c.aggregationPasses,
		c.aggregationLatency,
		c.conversationsEmitted,
		c.listingsSkipped,
		c.pollCycles,
		c.messagesSent,
		c.sendFailures,
	)

	return c
}

// RecordAggregationPass は集約パスの完了を記録する。
func (c *Collector) RecordAggregationPass(duration time.Duration, conversations int) {
	c.aggregationPasses.Inc()
	c.aggregationLatency.Observe(duration.Seconds())
	c.conversationsEmitted.Add(float64(conversations))
}

// RecordListingSkipped は集約中の出品スキップを理由付きで記録する。
func (c *Collector) RecordListingSkipped(reason string) {
	c.listingsSkipped.WithLabelValues(reason).Inc()
}

// RecordPollCycle はチャットのポーリング実行を記録する。
func (c *Collector) RecordPollCycle() {
	c.pollCycles.Inc()
}

// RecordMessageSent はメッセージ送信成功を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// RecordSendFailure はメッセージ送信失敗を記録する。
func (c *Collector) RecordSendFailure() {
	c.sendFailures.Inc()
}

// Noop は何も記録しないMetricsCollector。テストとメトリクス無効時に使う。
type Noop struct{}

var _ MetricsCollector = Noop{}

func (Noop) RecordAggregationPass(time.Duration, int) {}
func (Noop) RecordListingSkipped(string)              {}
func (Noop) RecordPollCycle()                         {}
func (Noop) RecordMessageSent()                       {}
func (Noop) RecordSendFailure()                       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
