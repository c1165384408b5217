package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Events API client metrics
var (
	APIRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests issued to the events backend",
		},
		[]string{"method", "resource", "status"}, // resource: collection|item, status: code or "error"
	)

	APIRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of requests to the events backend until response headers",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "resource"},
	)
)

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// InstrumentTransport counts and times requests sent through next.
// A nil next uses http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		resource := resourceKind(r.URL.Path)
		start := time.Now()

		resp, err := next.RoundTrip(r)

		APIRequestDuration.WithLabelValues(r.Method, resource).Observe(time.Since(start).Seconds())
		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		APIRequestsTotal.WithLabelValues(r.Method, resource, status).Inc()
		return resp, err
	})
}

// resourceKind classifies a request path as the events collection or a
// single event, keeping event IDs out of label values.
func resourceKind(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if strings.HasSuffix(trimmed, "/events") || trimmed == "events" {
		return "collection"
	}
	return "item"
}
