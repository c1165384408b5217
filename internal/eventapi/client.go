// Package eventapi is a thin client for the backend's events resource.
//
// The four operations map one-to-one onto HTTP requests against
// api/events/ and api/events/{id}/. They do not validate input, translate
// errors or interpret responses: the *http.Response is handed back exactly as
// net/http produced it and the caller owns its body. DecodeEvents and
// DecodeEvent are separate helpers for callers that want parsed JSON.
package eventapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	// CollectionPath is the events collection, relative to the base URL.
	CollectionPath = "api/events/"

	// DefaultTimeout applies when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second
)

// Client issues requests for the events resource using a fixed ClientConfig.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. A nil client keeps the
// default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTransport wraps requests in rt, keeping the client's timeout.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Transport = rt
		c.httpClient = &hc
	}
}

// WithLogger enables debug logging of issued requests.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client bound to cfg.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// GetAllEvents lists the events collection.
func (c *Client) GetAllEvents(ctx context.Context) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, CollectionPath, nil, "")
}

// CreateEvent posts p to the events collection as multipart form data.
func (c *Client) CreateEvent(ctx context.Context, p *Payload) (*http.Response, error) {
	body, contentType, err := p.encode()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, CollectionPath, body, contentType)
}

// UpdateEvent replaces the event addressed by id with p, encoded like
// CreateEvent.
func (c *Client) UpdateEvent(ctx context.Context, id any, p *Payload) (*http.Response, error) {
	body, contentType, err := p.encode()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, ResourcePath(id), body, contentType)
}

// DeleteEvent deletes the event addressed by id.
func (c *Client) DeleteEvent(ctx context.Context, id any) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, ResourcePath(id), nil, "")
}

// ResourcePath returns the path of a single event, relative to the base URL.
// id is formatted with fmt.Sprint, so strings and integers both work.
func ResourcePath(id any) string {
	return CollectionPath + url.PathEscape(fmt.Sprint(id)) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := c.cfg.baseURL.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for name, values := range c.cfg.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", target).Msg("events api request failed")
		return nil, err
	}
	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Msg("events api request")
	return resp, nil
}
