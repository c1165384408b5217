package eventapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Togather-Foundation/eventsdesk/internal/validation"
)

// ClientConfig is the request configuration shared by every call a Client
// makes: the base URL requests are resolved against and the headers added to
// each of them. A ClientConfig is never modified after construction; the
// With* methods return a copy.
type ClientConfig struct {
	baseURL *url.URL
	headers http.Header
}

// NewClientConfig parses baseURL into a configuration without default headers.
// A trailing slash is added so that relative resource paths keep any path
// prefix of the base URL.
func NewClientConfig(baseURL string) (ClientConfig, error) {
	baseURL = strings.TrimSpace(baseURL)
	if err := validation.ValidateBaseURL(baseURL, "base url", false); err != nil {
		return ClientConfig{}, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return ClientConfig{baseURL: u, headers: http.Header{}}, nil
}

// BaseURL returns a copy of the configured base URL.
func (c ClientConfig) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// Header returns the default value of the named header, or "" when unset.
func (c ClientConfig) Header(name string) string {
	return c.headers.Get(name)
}

// Headers returns a copy of all default headers.
func (c ClientConfig) Headers() http.Header {
	return c.headers.Clone()
}

// WithHeader returns a copy of c whose default headers include name: value.
func (c ClientConfig) WithHeader(name, value string) ClientConfig {
	h := c.headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(name, value)
	return ClientConfig{baseURL: c.BaseURL(), headers: h}
}

// WithAuthToken returns a copy of c that authenticates with the backend's
// token scheme ("Authorization: Token <token>").
func (c ClientConfig) WithAuthToken(token string) ClientConfig {
	return c.WithHeader("Authorization", "Token "+token)
}
