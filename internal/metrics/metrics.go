// Package metrics exposes Prometheus collectors for the movie service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for scraper and proxy counters.
const (
	PageFetched = "fetched"
	PageEmpty   = "empty"
	PageFailed  = "failed"

	ItemInserted  = "inserted"
	ItemMalformed = "malformed"
	ItemFailed    = "insert_failed"

	ProxyOK          = "ok"
	ProxyBadRequest  = "bad_request"
	ProxyUpstreamErr = "upstream_status"
	ProxyFailed      = "failed"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	scraperPagesTotal          *prometheus.CounterVec
	scraperItemsTotal          *prometheus.CounterVec
	proxyRequestsTotal         *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of listing pages requested, labeled by status.",
			},
			[]string{"status"},
		)

		scraperItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_items_total",
				Help: "Total number of scraped movie items, labeled by result.",
			},
			[]string{"result"},
		)

		proxyRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_requests_total",
				Help: "Total number of image proxy requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_limit_delay_seconds",
				Help:    "Time outbound requests spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePage counts one listing page request.
func ObservePage(status string) {
	Init()
	scraperPagesTotal.WithLabelValues(status).Inc()
}

// ObserveItem counts one scraped item.
func ObserveItem(result string) {
	Init()
	scraperItemsTotal.WithLabelValues(result).Inc()
}

// ObserveProxy counts one image proxy request.
func ObserveProxy(outcome string) {
	Init()
	proxyRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records how long a request waited for a token.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
