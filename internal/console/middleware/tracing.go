package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/eventsdesk/internal/console"

// Tracing starts a server span per console request. It is the outermost
// middleware, so the span covers logging, rate limiting and the view.
//
// Span attributes include:
//   - http.method: HTTP method (GET, POST, etc.)
//   - http.url: Full request URL
//   - http.scheme: http or https, honouring X-Forwarded-Proto
//   - http.user_agent: Client user agent
//   - http.status_code: Response status code
//   - request_id: X-Request-ID assigned by CorrelationID
//
// Only 5xx responses mark the span as an error. 4xx answers such as a CSRF
// rejection or an unknown event are outcomes of the user's input, not console
// failures. Events API calls made while serving the request become
// child spans through the request context; the span context is propagated
// via W3C Trace Context headers (traceparent, tracestate).
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Continue a trace started by a reverse proxy, if any
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(r.Method),
				semconv.HTTPURL(r.URL.String()),
				semconv.HTTPScheme(schemeFromRequest(r)),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		ww := &tracingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(ctx))

		// CorrelationID runs inside this middleware and echoes the ID it
		// picked on the response.
		if requestID := w.Header().Get(eventapi.RequestIDHeader); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		span.SetAttributes(semconv.HTTPStatusCode(ww.statusCode))
		if ww.statusCode >= 500 {
			span.SetStatus(codes.Error, http.StatusText(ww.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// tracingResponseWriter wraps http.ResponseWriter to capture the status code
type tracingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *tracingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// schemeFromRequest determines the HTTP scheme (http or https) from the request
func schemeFromRequest(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
