package console

import (
	"net/http"

	"github.com/Togather-Foundation/eventsdesk/internal/audit"
	"github.com/Togather-Foundation/eventsdesk/internal/console/middleware"
	"github.com/Togather-Foundation/eventsdesk/internal/metrics"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
)

// HandlerOptions configure the console's middleware chain.
type HandlerOptions struct {
	Logger             zerolog.Logger
	CSRFKey            []byte // nil disables CSRF protection
	Secure             bool   // served over TLS
	RateLimitPerMinute int
	MaxUploadBytes     int64
	Metrics            http.Handler // served on /metrics when set
	Audit              *audit.Logger
	Version            string // reported by /readyz
}

// Handler wraps the UI root with static assets, health endpoints, metrics
// and the middleware chain. Pages get CSRF and body-size limits; every request
// is traced and logged. Health checks and static assets skip rate limiting.
// /readyz follows the root's mount state when root implements Readiness.
func Handler(root http.Handler, opts HandlerOptions) http.Handler {
	pages := root
	if opts.Audit != nil {
		pages = audit.Middleware(opts.Audit)(pages)
	}
	if len(opts.CSRFKey) > 0 {
		pages = middleware.CSRFProtection(opts.CSRFKey, opts.Secure)(pages)
	}
	if opts.MaxUploadBytes > 0 {
		pages = middleware.RequestSize(opts.MaxUploadBytes)(pages)
	}

	mux := http.NewServeMux()
	mux.Handle("/static/style.css", web.StyleHandler())
	mux.Handle("/robots.txt", web.RobotsTxtHandler())
	mux.Handle("GET /healthz", Healthz())
	rs, _ := root.(Readiness)
	mux.Handle("GET /readyz", Readyz(rs, opts.Version))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.Handle("/", pages)

	var h http.Handler = mux
	h = middleware.RateLimit(opts.RateLimitPerMinute)(h)
	h = middleware.SecurityHeaders(opts.Secure)(h)
	h = metrics.HTTPMiddleware(h)
	h = middleware.RequestLogging(opts.Logger)(h)
	h = middleware.CorrelationID(opts.Logger)(h)
	h = middleware.Tracing(h)
	return h
}
