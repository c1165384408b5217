package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthCheck {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var hc HealthCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hc))
	return hc
}

func TestHealthz(t *testing.T) {
	app := ui.New(web.Shell(), zerolog.Nop())
	h := Handler(app, HandlerOptions{Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz_BeforeMount(t *testing.T) {
	app := ui.New(web.Shell(), zerolog.Nop())
	h := Handler(app, HandlerOptions{Logger: zerolog.Nop(), Version: "1.2.3"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hc := decodeHealth(t, rec)
	assert.Equal(t, "unhealthy", hc.Status)
	assert.Equal(t, "1.2.3", hc.Version)
	assert.Equal(t, "fail", hc.Checks["ui"].Status)
	assert.NotContains(t, hc.Checks, "events_api")
}

func TestReadyz_Mounted(t *testing.T) {
	c := newTestConsole(t, "abc123", func(o *HandlerOptions) { o.Version = "1.2.3" })

	rec := c.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	hc := decodeHealth(t, rec)
	assert.Equal(t, "healthy", hc.Status)
	assert.Equal(t, "pass", hc.Checks["ui"].Status)
	assert.Equal(t, "pass", hc.Checks["events_api"].Status)
	assert.NotEmpty(t, hc.Timestamp)

	sent := c.backend.last(t)
	assert.Equal(t, http.MethodGet, sent.Method)
	assert.Equal(t, "/api/events/", sent.Path)
	assert.Equal(t, "Token abc123", sent.Auth)
}

func TestReadyz_EventsAPIRefuses(t *testing.T) {
	c := newTestConsole(t, "")
	c.backend.listStatus = http.StatusForbidden

	rec := c.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	hc := decodeHealth(t, rec)
	assert.Equal(t, "degraded", hc.Status)
	assert.Equal(t, "warn", hc.Checks["events_api"].Status)
	assert.Contains(t, hc.Checks["events_api"].Message, "403")
}

func TestReadyz_EventsAPIUnreachable(t *testing.T) {
	app := ui.New(web.Shell(), zerolog.Nop())
	cfg, err := eventapi.NewClientConfig("http://127.0.0.1:1/")
	require.NoError(t, err)
	require.NoError(t, app.Mount("app", eventapi.NewClient(cfg)))
	h := Handler(app, HandlerOptions{Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	hc := decodeHealth(t, rec)
	assert.Equal(t, "degraded", hc.Status)
	assert.Equal(t, "events API unreachable", hc.Checks["events_api"].Message)
	assert.NotEmpty(t, hc.Checks["events_api"].Details["error"])
}

func TestReadyz_WithoutReadinessSource(t *testing.T) {
	h := Handler(http.NotFoundHandler(), HandlerOptions{Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
