// Package audit records changes made through the console: event
// mutations and token logins/logouts.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/rs/zerolog"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address"`
	RequestID    string            `json:"request_id,omitempty"`
	Status       string            `json:"status"` // "success" or "failure"
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes audit entries as structured log lines.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger writing through logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.logger.Info().Interface("audit", entry).Msg("audit")
}

// LogFromRequest records action on a resource from a console request. A
// non-nil err marks the entry as a failure.
func (l *Logger) LogFromRequest(r *http.Request, action, resourceType, resourceID string, err error, details map[string]string) {
	entry := Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    extractClientIP(r),
		RequestID:    eventapi.RequestIDFromContext(r.Context()),
		Status:       "success",
		Details:      details,
	}
	if err != nil {
		entry.Status = "failure"
		merged := make(map[string]string, len(details)+1)
		for k, v := range details {
			merged[k] = v
		}
		merged["error"] = err.Error()
		entry.Details = merged
	}
	l.Log(entry)
}

// extractClientIP gets the client IP from proxy headers or RemoteAddr.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type contextKey struct{}

// WithLogger adds an audit logger to the request context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the audit logger from the request context. Without
// one, entries are discarded.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{logger: zerolog.Nop()}
}

// Middleware makes logger available to handlers through FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}
