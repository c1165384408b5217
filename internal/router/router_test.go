package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func named(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc, _ := LocationFromContext(r.Context())
		_, _ = w.Write([]byte(name + ":" + loc.Name))
	})
}

func testRoutes() []Route {
	return []Route{
		{Name: "events", Pattern: "GET /{$}", Handler: named("events"), RequiresAuth: true},
		{Name: "event-edit", Pattern: "GET /events/{id}/edit", Handler: named("event-edit"), RequiresAuth: true},
		{Name: "login", Pattern: "GET /login", Handler: named("login")},
		{Name: "not-found", Pattern: "GET /not-found", Handler: named("not-found")},
	}
}

func newTestRouter(t *testing.T, startPath string) *Router {
	t.Helper()
	r, err := New(Options{StartPath: startPath, NotFound: "not-found"}, testRoutes()...)
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{}, Route{Name: "a", Pattern: "GET /a"}, Route{Name: "a", Pattern: "GET /b"})
	assert.ErrorContains(t, err, "duplicate route name")

	_, err = New(Options{}, Route{Name: "a", Pattern: "GET /a"}, Route{Name: "b", Pattern: "GET /a"})
	assert.ErrorContains(t, err, "duplicate route pattern")

	_, err = New(Options{}, Route{Name: "a", Pattern: "GET /{bad"})
	assert.ErrorContains(t, err, "invalid pattern")

	_, err = New(Options{NotFound: "missing"}, Route{Name: "a", Pattern: "GET /a"})
	assert.ErrorContains(t, err, "not-found route")
}

func TestResolve(t *testing.T) {
	r := newTestRouter(t, "/")

	tests := []struct {
		path string
		want string
	}{
		{"/", "events"},
		{"/events/42/edit", "event-edit"},
		{"/login?next=%2F", "login"},
		{"/nowhere", "not-found"},
		{"events/42/edit", "event-edit"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.Name)
		})
	}

	loc, err := r.Resolve("/login?next=%2F")
	require.NoError(t, err)
	assert.Equal(t, "/", loc.Query.Get("next"))
}

func TestResolve_NoNotFoundRoute(t *testing.T) {
	r, err := New(Options{}, Route{Name: "a", Pattern: "GET /a"})
	require.NoError(t, err)
	_, err = r.Resolve("/b")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestNavigate_RequireAuthRedirects(t *testing.T) {
	r := newTestRouter(t, "/")
	r.BeforeEach(RequireAuth(staticTokens(""), "/login"))

	loc, err := r.Navigate(context.Background(), "/events/9/edit")
	require.NoError(t, err)
	assert.Equal(t, "login", loc.Name)
	assert.Equal(t, "/events/9/edit", loc.Query.Get("next"))

	authed := newTestRouter(t, "/")
	authed.BeforeEach(RequireAuth(staticTokens("abc123"), "/login"))
	loc, err = authed.Navigate(context.Background(), "/events/9/edit")
	require.NoError(t, err)
	assert.Equal(t, "event-edit", loc.Name)
}

func TestRequireAuth_KeepsNextForPageViewsOnly(t *testing.T) {
	guard := RequireAuth(staticTokens(""), "/login")

	tests := []struct {
		method string
		want   string
	}{
		{"", "/login?next=%2Fevents%2F9%2Fedit"},
		{http.MethodGet, "/login?next=%2Fevents%2F9%2Fedit"},
		{http.MethodHead, "/login?next=%2Fevents%2F9%2Fedit"},
		{http.MethodPost, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			redirect, err := guard(context.Background(), Location{Method: tt.method, Path: "/events/9/edit", RequiresAuth: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, redirect)
		})
	}
}

func TestNavigate_RedirectLoop(t *testing.T) {
	r := newTestRouter(t, "/")
	var flip atomic.Bool
	r.BeforeEach(func(ctx context.Context, to Location) (string, error) {
		if flip.Load() {
			flip.Store(false)
			return "/login", nil
		}
		flip.Store(true)
		return "/not-found", nil
	})

	_, err := r.Navigate(context.Background(), "/")
	assert.ErrorIs(t, err, ErrRedirectLoop)
}

func TestNavigate_GuardError(t *testing.T) {
	r := newTestRouter(t, "/")
	denied := errors.New("denied")
	r.BeforeEach(func(context.Context, Location) (string, error) { return "", denied })

	_, err := r.Navigate(context.Background(), "/")
	assert.ErrorIs(t, err, denied)
}

func TestIsReady_BlocksUntilResolved(t *testing.T) {
	r := newTestRouter(t, "/")
	release := make(chan struct{})
	r.BeforeEach(func(ctx context.Context, to Location) (string, error) {
		<-release
		return "", nil
	})

	r.Start(context.Background(), "/events/1/edit")

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.IsReady(waitCtx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, r.IsReady(context.Background()))
	assert.Equal(t, "event-edit", r.Current().Name)

	// Start is one-shot.
	r.Start(context.Background(), "/login")
	require.NoError(t, r.IsReady(context.Background()))
	assert.Equal(t, "event-edit", r.Current().Name)
}

func TestInstall_RegistersGuardedRoutes(t *testing.T) {
	r := newTestRouter(t, "/")
	r.BeforeEach(RequireAuth(staticTokens(""), "/login"))

	app := ui.New(web.Shell(), zerolog.Nop())
	require.NoError(t, app.Use(r))
	require.NoError(t, r.IsReady(context.Background()))
	assert.Equal(t, "login", r.Current().Name)

	cfg, err := eventapi.NewClientConfig("http://127.0.0.1:8000/")
	require.NoError(t, err)
	require.NoError(t, app.Mount("app", eventapi.NewClient(cfg)))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/3/edit", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fevents%2F3%2Fedit", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "login:login", rec.Body.String())

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing/page", nil))
	assert.Equal(t, "not-found:not-found", rec.Body.String())
}
