// Package bootstrap starts the console in a fixed order: client
// configuration, UI root, state and router plugins, router readiness, auth
// header, and finally the mount.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/config"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/metrics"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
)

// DefaultAnchor is the shell element the UI root mounts on.
const DefaultAnchor = "app"

// Root is the UI root being bootstrapped. *ui.App implements it.
type Root interface {
	Use(p ui.Plugin) error
	Mount(anchor string, client *eventapi.Client) error
	http.Handler
}

// Router is the router plugin. Mounting waits on IsReady.
type Router interface {
	ui.Plugin
	IsReady(ctx context.Context) error
}

// TokenSource yields the persisted API token, "" when logged out.
type TokenSource interface {
	Token() string
}

// Store is the state plugin; it also owns the auth token.
type Store interface {
	ui.Plugin
	TokenSource
}

// Options configure Run. Store and Router are required.
type Options struct {
	// BaseURL of the events API. Defaults to config.DefaultAPIBaseURL.
	BaseURL string
	// Anchor is the id of the shell element to mount on. Defaults to "app".
	Anchor string
	// NewRoot constructs the UI root. Defaults to a ui.App on the embedded
	// shell.
	NewRoot func() Root

	Store  Store
	Router Router

	ClientOptions []eventapi.Option
	Logger        zerolog.Logger
}

// Result is what a completed bootstrap produced.
type Result struct {
	Config eventapi.ClientConfig
	Client *eventapi.Client
	Root   Root
}

// Run performs the bootstrap. It blocks until the router is ready; cancel
// ctx to give up. Nothing is mounted when Run fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Store == nil || opts.Router == nil {
		return nil, errors.New("bootstrap: store and router plugins are required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	anchor := opts.Anchor
	if anchor == "" {
		anchor = DefaultAnchor
	}
	newRoot := opts.NewRoot
	if newRoot == nil {
		newRoot = func() Root { return ui.New(web.Shell(), opts.Logger) }
	}
	logger := opts.Logger.With().Str("component", "bootstrap").Logger()

	// 1. client configuration
	cfg, err := eventapi.NewClientConfig(baseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	phase(logger, 1, "client configured")

	// 2. UI root
	root := newRoot()
	phase(logger, 2, "ui root created")

	// 3. plugins, state first
	if err := root.Use(opts.Store); err != nil {
		return nil, fmt.Errorf("bootstrap: use state plugin: %w", err)
	}
	if err := root.Use(opts.Router); err != nil {
		return nil, fmt.Errorf("bootstrap: use router plugin: %w", err)
	}
	phase(logger, 3, "plugins installed")

	// 4. router readiness
	start := time.Now()
	err = opts.Router.IsReady(ctx)
	metrics.RouterReadyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: router not ready: %w", err)
	}
	phase(logger, 4, "router ready")

	// 5. and 6. auth header from the persisted token
	token := opts.Store.Token()
	phase(logger, 5, "auth store read")
	if token != "" {
		cfg = cfg.WithAuthToken(token)
	}
	phase(logger, 6, "auth header applied")

	// 7. mount
	client := eventapi.NewClient(cfg, opts.ClientOptions...)
	if err := root.Mount(anchor, client); err != nil {
		return nil, fmt.Errorf("bootstrap: mount #%s: %w", anchor, err)
	}
	phase(logger, 7, "mounted")

	return &Result{Config: cfg, Client: client, Root: root}, nil
}

// ClientConfigFor builds the client configuration Run would end up with,
// for callers that have no UI.
func ClientConfigFor(baseURL string, tokens TokenSource) (eventapi.ClientConfig, error) {
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	cfg, err := eventapi.NewClientConfig(baseURL)
	if err != nil {
		return eventapi.ClientConfig{}, err
	}
	if tokens != nil {
		if token := tokens.Token(); token != "" {
			cfg = cfg.WithAuthToken(token)
		}
	}
	return cfg, nil
}

func phase(logger zerolog.Logger, step int, msg string) {
	metrics.BootstrapPhase.Set(float64(step))
	logger.Debug().Int("step", step).Msg(msg)
}
