package ui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *App {
	t.Helper()
	return New(web.Shell(), zerolog.Nop())
}

func testClient(t *testing.T) *eventapi.Client {
	t.Helper()
	cfg, err := eventapi.NewClientConfig("http://127.0.0.1:8000/")
	require.NoError(t, err)
	return eventapi.NewClient(cfg)
}

func TestServeBeforeMount(t *testing.T) {
	app := newApp(t)
	require.NoError(t, app.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, app.Mount("app", testClient(t)))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUseInstallsPlugins(t *testing.T) {
	app := newApp(t)
	var order []string

	require.NoError(t, app.Use(PluginFunc(func(a *App) error {
		order = append(order, "state")
		a.Provide("greeting", "hello")
		return nil
	})))
	require.NoError(t, app.Use(PluginFunc(func(a *App) error {
		order = append(order, "router")
		return nil
	})))

	assert.Equal(t, []string{"state", "router"}, order)
	v, ok := app.Inject("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestUsePropagatesPluginError(t *testing.T) {
	app := newApp(t)
	boom := errors.New("boom")
	err := app.Use(PluginFunc(func(*App) error { return boom }))
	assert.ErrorIs(t, err, boom)
}

func TestMount(t *testing.T) {
	t.Run("missing anchor", func(t *testing.T) {
		app := newApp(t)
		err := app.Mount("root", testClient(t))
		assert.ErrorIs(t, err, ErrAnchorNotFound)
		assert.False(t, app.Mounted())
	})

	t.Run("mount once", func(t *testing.T) {
		app := newApp(t)
		client := testClient(t)
		require.NoError(t, app.Mount("app", client))
		assert.True(t, app.Mounted())
		assert.Same(t, client, app.Client())

		assert.ErrorIs(t, app.Mount("app", client), ErrAlreadyMounted)
		assert.ErrorIs(t, app.Use(PluginFunc(func(*App) error { return nil })), ErrAlreadyMounted)
		assert.ErrorIs(t, app.Handle("GET /x", http.NotFoundHandler()), ErrAlreadyMounted)
	})
}

func TestRenderFillsAnchor(t *testing.T) {
	app := newApp(t)
	require.NoError(t, app.Mount("app", testClient(t)))

	rec := httptest.NewRecorder()
	app.Render(rec, Page{
		Title:  "All events",
		Body:   `<h1>All events</h1>`,
		Nav:    `<a href="/login">Log in</a>`,
		Status: http.StatusAccepted,
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "All events", doc.Find("#app h1").Text())
	assert.Equal(t, "Log in", doc.Find("#nav a").Text())
	assert.Equal(t, "All events · Events", doc.Find("title").Text())
}

func TestFromContext(t *testing.T) {
	app := newApp(t)
	var got *App
	require.NoError(t, app.Handle("GET /whoami", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	})))
	require.NoError(t, app.Mount("app", testClient(t)))

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Same(t, app, got)

	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
