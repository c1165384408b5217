// Package ui holds the console's UI root: the App that plugins are installed
// on, that routes register their views with, and that is finally mounted on
// an anchor element of the HTML shell.
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyMounted is returned by Use, Handle and Mount after Mount succeeded.
	ErrAlreadyMounted = errors.New("ui: app already mounted")

	// ErrAnchorNotFound is returned by Mount when the shell has no element
	// with the requested id.
	ErrAnchorNotFound = errors.New("ui: mount anchor not found")
)

// Plugin extends an App before it is mounted.
type Plugin interface {
	Install(app *App) error
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(app *App) error

func (f PluginFunc) Install(app *App) error { return f(app) }

// App is the UI root.
type App struct {
	mu       sync.RWMutex
	shell    []byte
	mux      *http.ServeMux
	provides map[any]any
	anchor   string
	mounted  bool
	client   *eventapi.Client
	logger   zerolog.Logger
}

// New creates an unmounted App around an HTML shell document.
func New(shell []byte, logger zerolog.Logger) *App {
	return &App{
		shell:    append([]byte(nil), shell...),
		mux:      http.NewServeMux(),
		provides: make(map[any]any),
		logger:   logger,
	}
}

// Use installs a plugin. Plugins must be installed before Mount.
func (a *App) Use(p Plugin) error {
	if a.Mounted() {
		return ErrAlreadyMounted
	}
	if err := p.Install(a); err != nil {
		return fmt.Errorf("install plugin %T: %w", p, err)
	}
	return nil
}

// Provide makes value available to views under key.
func (a *App) Provide(key, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.provides[key] = value
}

// Inject returns the value provided under key.
func (a *App) Inject(key any) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.provides[key]
	return v, ok
}

// Handle registers a view for a ServeMux pattern.
func (a *App) Handle(pattern string, h http.Handler) error {
	if a.Mounted() {
		return ErrAlreadyMounted
	}
	a.mux.Handle(pattern, h)
	return nil
}

// Mount binds the App to the shell element whose id is anchor and starts
// serving views through client. Before Mount every request is answered with
// 503.
func (a *App) Mount(anchor string, client *eventapi.Client) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(a.shell))
	if err != nil {
		return fmt.Errorf("parse shell: %w", err)
	}
	if doc.Find("#" + anchor).Length() == 0 {
		return fmt.Errorf("%w: #%s", ErrAnchorNotFound, anchor)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mounted {
		return ErrAlreadyMounted
	}
	a.anchor = anchor
	a.client = client
	a.mounted = true
	a.logger.Info().Str("anchor", anchor).Msg("ui mounted")
	return nil
}

// Mounted reports whether Mount has succeeded.
func (a *App) Mounted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mounted
}

// Client is the events API client the App was mounted with, nil before Mount.
func (a *App) Client() *eventapi.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

// Logger returns the App's logger.
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.Mounted() {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "console is starting", http.StatusServiceUnavailable)
		return
	}
	a.mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), appKey{}, a)))
}

type appKey struct{}

// FromContext returns the App serving the current request.
func FromContext(ctx context.Context) (*App, bool) {
	a, ok := ctx.Value(appKey{}).(*App)
	return a, ok
}

// Page is one rendered view.
type Page struct {
	Title  string
	Body   template.HTML
	Nav    template.HTML
	Status int
}

// Render writes page into the mounted anchor of the shell document.
func (a *App) Render(w http.ResponseWriter, page Page) {
	a.mu.RLock()
	anchor := a.anchor
	a.mu.RUnlock()

	out, err := a.renderDocument(anchor, page)
	if err != nil {
		a.logger.Error().Err(err).Msg("render page")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (a *App) renderDocument(anchor string, page Page) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(a.shell))
	if err != nil {
		return nil, fmt.Errorf("parse shell: %w", err)
	}
	target := doc.Find("#" + anchor)
	if target.Length() == 0 {
		return nil, fmt.Errorf("%w: #%s", ErrAnchorNotFound, anchor)
	}
	target.SetHtml(string(page.Body))
	if page.Nav != "" {
		doc.Find("#nav").SetHtml(string(page.Nav))
	}
	if page.Title != "" {
		doc.Find("title").SetText(page.Title + " · Events")
	}

	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, fmt.Errorf("serialize page: %w", err)
	}
	return []byte(html), nil
}
