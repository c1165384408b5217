package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all eventsdesk metrics
const namespace = "eventsdesk"

// Registry holds every eventsdesk collector. It is separate from the default
// registry so tests and embedders do not collide.
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels (value is always 1)
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// BootstrapPhase records the last completed bootstrap step (1-7) and
// RouterReadyDuration how long the readiness wait took.
var (
	BootstrapPhase = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bootstrap_phase",
			Help:      "Last completed bootstrap step (7 = mounted)",
		},
	)

	RouterReadyDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "router_ready_duration_seconds",
			Help:      "Time spent waiting for the router's initial resolution",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 30},
		},
	)
)

// Init registers runtime collectors and sets version information.
// Calling it more than once is a no-op for the collectors.
func Init(version, commit, buildDate string) {
	_ = Registry.Register(collectors.NewGoCollector())
	_ = Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
