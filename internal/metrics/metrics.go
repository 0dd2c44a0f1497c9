// Package metrics holds the Prometheus collectors of the gate. They register
// with the default registry, which /metrics serves through promhttp.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution sources of a subscription check
const (
	SourceCookie   = "cookie"
	SourceEmail    = "email"
	SourceProvider = "provider"
	SourceNone     = "none"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newslettergate_resolutions_total",
		Help: "Subscription checks by provider and the tier that answered",
	}, []string{"provider", "source"})

	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newslettergate_provider_requests_total",
		Help: "Outbound provider API calls by provider, operation and outcome",
	}, []string{"provider", "operation", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newslettergate_provider_request_duration_seconds",
		Help:    "Duration of outbound provider API calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "operation"})

	subscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newslettergate_subscriptions_total",
		Help: "Subscribe attempts through the gate by provider and outcome",
	}, []string{"provider", "outcome"})

	purgedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newslettergate_purged_subscribers_total",
		Help: "Expired subscriber rows removed by the purge job",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newslettergate_http_requests_total",
		Help: "HTTP requests served by route and status",
	}, []string{"route", "status"})
)

// ObserveResolution counts one subscription check
func ObserveResolution(provider, source string) {
	resolutions.WithLabelValues(provider, source).Inc()
}

// ObserveProviderRequest records one provider API call. err decides the outcome label.
func ObserveProviderRequest(provider, operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, operation, outcome).Inc()
	providerDuration.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}

// ObserveSubscription counts one subscribe attempt
func ObserveSubscription(provider string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	subscriptions.WithLabelValues(provider, outcome).Inc()
}

// AddPurged counts rows removed by the purge job
func AddPurged(n int64) {
	if n > 0 {
		purgedRows.Add(float64(n))
	}
}

// ObserveHTTP counts one served request
func ObserveHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
