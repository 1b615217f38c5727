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
// ワーカーやスクレイパーから利用する。
type MetricsCollector interface {
	RecordScrapeSuccess(domain string)
	RecordScrapeFailure(domain string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordURLsDiscovered(count int)
	RecordURLsAdded(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	scrapeSuccess  *prometheus.CounterVec
	scrapeFail     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	urlsDiscovered prometheus.Counter
	urlsAdded      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scrapeSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simmer_scrape_success_total",
			Help: "レシピスクレイプ成功の合計数",
		}, []string{"domain"}),
		scrapeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simmer_scrape_fail_total",
			Help: "レシピスクレイプ失敗の合計数",
		}, []string{"domain"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simmer_fetch_http_status_total",
			Help: "外部フェッチのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simmer_fetch_latency_seconds",
			Help:    "外部フェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		urlsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simmer_urls_discovered_total",
			Help: "sitemap/フィードから発見された候補URLの合計数",
		}),
		urlsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simmer_urls_added_total",
			Help: "キューに新規投入されたURLの合計数",
		}),
	}

	reg.MustRegister(
		c.scrapeSuccess,
		c.scrapeFail,
		c.httpStatus,
		c.fetchLatency,
		c.urlsDiscovered,
		c.urlsAdded,
	)

	return c
}

// RecordScrapeSuccess はスクレイプ成功を記録する。
func (c *Collector) RecordScrapeSuccess(domain string) {
	c.scrapeSuccess.WithLabelValues(domain).Inc()
}

// RecordScrapeFailure はスクレイプ失敗を記録する。
func (c *Collector) RecordScrapeFailure(domain string) {
	c.scrapeFail.WithLabelValues(domain).Inc()
}

// RecordHTTPStatus は外部フェッチのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency は外部フェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordURLsDiscovered は発見された候補URL数を記録する。
func (c *Collector) RecordURLsDiscovered(count int) {
	c.urlsDiscovered.Add(float64(count))
}

// RecordURLsAdded はキューに投入されたURL数を記録する。
func (c *Collector) RecordURLsAdded(count int) {
	c.urlsAdded.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
