package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CorrelationID tags each console request with an X-Request-ID.
//
// The caller's X-Request-ID is reused when present, otherwise a UUIDv4 is
// generated. The ID is:
//   - echoed on the response header
//   - attached as request_id to a request-scoped zerolog logger in the context
//   - stored for eventapi.RequestIDTransport, so events API calls made while
//     serving the request carry the same header
func CorrelationID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(eventapi.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(eventapi.RequestIDHeader, requestID)

			reqLogger := logger.With().Str("request_id", requestID).Logger()
			ctx := eventapi.ContextWithRequestID(r.Context(), requestID)
			ctx = reqLogger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext returns the request logger, or a disabled logger.
func LoggerFromContext(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
