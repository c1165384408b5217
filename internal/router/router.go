// Package router is the console's navigation layer. It owns the route table,
// runs navigation guards on every page request and resolves the initial
// location asynchronously when installed on the UI root. Mounting waits on
// IsReady so the first render sees the resolved route.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Togather-Foundation/eventsdesk/internal/ui"
)

// MaxRedirects bounds guard redirects during a single navigation.
const MaxRedirects = 5

var (
	// ErrNoRoute is returned when a path matches no route and no NotFound
	// route is configured.
	ErrNoRoute = errors.New("router: no route matches")

	// ErrRedirectLoop is returned when guards keep redirecting.
	ErrRedirectLoop = errors.New("router: too many redirects")
)

// Route maps a ServeMux pattern to a view.
type Route struct {
	Name         string
	Pattern      string // e.g. "GET /events/{id}/edit"
	Handler      http.Handler
	RequiresAuth bool
}

// Location is a resolved navigation target.
type Location struct {
	Name         string
	Method       string
	Path         string
	Query        url.Values
	Pattern      string
	RequiresAuth bool
}

// FullPath is Path plus the encoded query.
func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Guard inspects a navigation. A non-empty redirect sends the navigation
// elsewhere; an error aborts it.
type Guard func(ctx context.Context, to Location) (redirect string, err error)

// Options configure a Router.
type Options struct {
	// StartPath is resolved when the router is installed.
	StartPath string
	// NotFound names the route used for unmatched paths.
	NotFound string
}

// Router resolves paths to routes.
type Router struct {
	opts   Options
	routes map[string]Route // by pattern
	names  map[string]Route
	match  *http.ServeMux
	guards []Guard

	startOnce sync.Once
	ready     chan struct{}
	mu        sync.RWMutex
	current   Location
	err       error
}

// New builds a router. Patterns and names must be unique.
func New(opts Options, routes ...Route) (*Router, error) {
	r := &Router{
		opts:   opts,
		routes: make(map[string]Route, len(routes)),
		names:  make(map[string]Route, len(routes)),
		match:  http.NewServeMux(),
		ready:  make(chan struct{}),
	}
	for _, rt := range routes {
		if _, dup := r.names[rt.Name]; dup {
			return nil, fmt.Errorf("router: duplicate route name %q", rt.Name)
		}
		if _, dup := r.routes[rt.Pattern]; dup {
			return nil, fmt.Errorf("router: duplicate route pattern %q", rt.Pattern)
		}
		r.routes[rt.Pattern] = rt
		r.names[rt.Name] = rt
		// The mux is only used for matching; registering panics on invalid
		// or conflicting patterns, which we surface as an error.
		if err := safeHandle(r.match, rt.Pattern); err != nil {
			return nil, err
		}
	}
	if opts.NotFound != "" {
		if _, ok := r.names[opts.NotFound]; !ok {
			return nil, fmt.Errorf("router: not-found route %q is not defined", opts.NotFound)
		}
	}
	return r, nil
}

func safeHandle(mux *http.ServeMux, pattern string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("router: invalid pattern %q: %v", pattern, rec)
		}
	}()
	mux.Handle(pattern, http.NotFoundHandler())
	return nil
}

// BeforeEach adds a guard run on every navigation, in registration order.
func (r *Router) BeforeEach(g Guard) {
	r.guards = append(r.guards, g)
}

// Install registers every route on app, wrapped so that guards run per
// request, and starts resolving the start path.
func (r *Router) Install(app *ui.App) error {
	for pattern, rt := range r.routes {
		if err := app.Handle(pattern, r.guarded(rt)); err != nil {
			return fmt.Errorf("register route %q: %w", rt.Name, err)
		}
	}
	if r.opts.NotFound != "" {
		nf := r.names[r.opts.NotFound]
		if _, taken := r.routes["/"]; !taken {
			if err := app.Handle("/", r.guarded(nf)); err != nil {
				return fmt.Errorf("register not-found route: %w", err)
			}
		}
	}
	start := r.opts.StartPath
	if start == "" {
		start = "/"
	}
	r.Start(context.Background(), start)
	return nil
}

// Start resolves path as the initial location on its own goroutine. Only the
// first call has an effect.
func (r *Router) Start(ctx context.Context, path string) {
	r.startOnce.Do(func() {
		go func() {
			loc, err := r.Navigate(ctx, path)
			r.mu.Lock()
			r.current, r.err = loc, err
			r.mu.Unlock()
			close(r.ready)
		}()
	})
}

// IsReady blocks until the initial navigation finished and returns its
// error. It does not time out on its own; cancel ctx to stop waiting.
func (r *Router) IsReady(ctx context.Context) error {
	select {
	case <-r.ready:
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.err
	case <-ctx.Done():
		return fmt.Errorf("wait for router: %w", ctx.Err())
	}
}

// Ready is closed once the initial navigation finished.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

// Current is the location resolved by the initial navigation.
func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Resolve matches a GET to rawPath against the route table without running
// guards.
func (r *Router) Resolve(rawPath string) (Location, error) {
	return r.resolve(http.MethodGet, rawPath)
}

func (r *Router) resolve(method, rawPath string) (Location, error) {
	u, err := url.Parse(rawPath)
	if err != nil {
		return Location{}, fmt.Errorf("router: parse %q: %w", rawPath, err)
	}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	req := &http.Request{Method: method, URL: &url.URL{Path: u.Path}, Host: "console"}
	_, pattern := r.match.Handler(req)

	rt, ok := r.routes[pattern]
	if !ok {
		if r.opts.NotFound == "" {
			return Location{}, fmt.Errorf("%w: %s %s", ErrNoRoute, method, u.Path)
		}
		rt = r.names[r.opts.NotFound]
	}
	return Location{
		Name:         rt.Name,
		Method:       method,
		Path:         u.Path,
		Query:        u.Query(),
		Pattern:      rt.Pattern,
		RequiresAuth: rt.RequiresAuth,
	}, nil
}

// Navigate resolves rawPath and runs the guards, following redirects.
func (r *Router) Navigate(ctx context.Context, rawPath string) (Location, error) {
	target := rawPath
	for i := 0; i <= MaxRedirects; i++ {
		loc, err := r.Resolve(target)
		if err != nil {
			return Location{}, err
		}
		redirect, err := r.runGuards(ctx, loc)
		if err != nil {
			return Location{}, err
		}
		if redirect == "" {
			return loc, nil
		}
		target = redirect
	}
	return Location{}, fmt.Errorf("%w: starting at %s", ErrRedirectLoop, rawPath)
}

func (r *Router) runGuards(ctx context.Context, loc Location) (string, error) {
	for _, g := range r.guards {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		redirect, err := g(ctx, loc)
		if err != nil {
			return "", fmt.Errorf("guard rejected %s: %w", loc.Path, err)
		}
		if redirect != "" && redirect != loc.FullPath() {
			return redirect, nil
		}
	}
	return "", nil
}

// LocationFromContext returns the location of the page request being served.
func LocationFromContext(ctx context.Context) (Location, bool) {
	loc, ok := ctx.Value(locationKey{}).(Location)
	return loc, ok
}

type locationKey struct{}

func (r *Router) guarded(rt Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		loc := Location{
			Name:         rt.Name,
			Method:       req.Method,
			Path:         req.URL.Path,
			Query:        req.URL.Query(),
			Pattern:      rt.Pattern,
			RequiresAuth: rt.RequiresAuth,
		}
		redirect, err := r.runGuards(req.Context(), loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		if redirect != "" {
			http.Redirect(w, req, redirect, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(req.Context(), locationKey{}, loc)
		rt.Handler.ServeHTTP(w, req.WithContext(ctx))
	})
}
