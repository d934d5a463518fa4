// Package metrics exposes Prometheus instrumentation for resolution and delivery.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts finished resolutions by strategy and outcome.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashdl_resolutions_total",
		Help: "Total number of URL resolutions by strategy and outcome",
	}, []string{"strategy", "outcome"})

	// ResolutionDuration tracks how long resolving one URL takes.
	ResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flashdl_resolution_duration_seconds",
		Help:    "Time taken to resolve a URL",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60, 90},
	}, []string{"strategy"})

	// FallbackAttemptsTotal counts bypass scraper attempts.
	FallbackAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashdl_fallback_attempts_total",
		Help: "Bypass scraper attempts by scraper and whether they found media",
	}, []string{"scraper", "found"})

	// DeliveredBytesTotal counts bytes relayed to clients.
	DeliveredBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashdl_delivered_bytes_total",
		Help: "Bytes relayed to clients by delivery kind",
	}, []string{"kind"})

	// DeliveriesTotal counts delivery attempts by kind and outcome.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashdl_deliveries_total",
		Help: "Delivery attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	// RemuxDuration tracks merge runtime.
	RemuxDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flashdl_remux_duration_seconds",
		Help:    "Time taken by the remux engine",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
	}, []string{"outcome"})

	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashdl_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})
)

// RecordResolution records one finished resolution.
func RecordResolution(strategy, outcome string, duration time.Duration) {
	ResolutionsTotal.WithLabelValues(strategy, outcome).Inc()
	ResolutionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// IncFallbackAttempt records a bypass scraper attempt.
func IncFallbackAttempt(scraper string, found bool) {
	FallbackAttemptsTotal.WithLabelValues(scraper, strconv.FormatBool(found)).Inc()
}

// AddDeliveredBytes records relayed bytes.
func AddDeliveredBytes(kind string, n int64) {
	if n <= 0 {
		return
	}
	DeliveredBytesTotal.WithLabelValues(kind).Add(float64(n))
}

// IncDelivery records a delivery outcome.
func IncDelivery(kind, outcome string) {
	DeliveriesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRemux records one remux run.
func ObserveRemux(success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	RemuxDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncHTTPRequest records one served request.
func IncHTTPRequest(route, method string, code int) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}
