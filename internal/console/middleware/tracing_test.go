package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

func TestTracing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus otelcodes.Code
	}{
		{"ok", http.StatusOK, otelcodes.Ok},
		{"user error", http.StatusForbidden, otelcodes.Ok},
		{"backend failure", http.StatusBadGateway, otelcodes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := withSpanRecorder(t)
			handler := Tracing(CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			req := httptest.NewRequest(http.MethodPost, "/events/7", nil)
			req.Header.Set("X-Request-ID", "req-7")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, "POST /events/7", span.Name)
			assert.Equal(t, tt.wantStatus, span.Status.Code)

			attrs := map[string]string{}
			for _, kv := range span.Attributes {
				attrs[string(kv.Key)] = kv.Value.Emit()
			}
			assert.Equal(t, "req-7", attrs["request_id"])
			assert.Equal(t, "POST", attrs["http.method"])
			assert.Equal(t, "http", attrs["http.scheme"])
			assert.Equal(t, strconv.Itoa(tt.status), attrs["http.status_code"])
		})
	}
}
