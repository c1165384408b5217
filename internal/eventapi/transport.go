package eventapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader correlates console and backend log lines.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// ContextWithRequestID attaches a correlation ID that RequestIDTransport
// forwards to the backend.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// RequestIDTransport sets X-Request-ID on outgoing requests that lack one,
// using the ID from the request context or a fresh UUID. A nil next uses
// http.DefaultTransport.
func RequestIDTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(RequestIDHeader) != "" {
			return next.RoundTrip(r)
		}
		id := RequestIDFromContext(r.Context())
		if id == "" {
			id = uuid.NewString()
		}
		out := r.Clone(r.Context())
		out.Header.Set(RequestIDHeader, id)
		return next.RoundTrip(out)
	})
}
