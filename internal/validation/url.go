// Package validation checks user supplied URLs: the events API base URL and
// links found in event records before the console renders them.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLValidationError represents a URL validation failure
type URLValidationError struct {
	Field   string
	Message string
	URL     string
}

func (e URLValidationError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// ValidateURL checks that urlString is an absolute http(s) URL. Empty strings
// pass; callers decide whether a field is required.
func ValidateURL(urlString, fieldName string, requireHTTPS bool) error {
	if urlString == "" {
		return nil
	}

	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return URLValidationError{Field: fieldName, Message: "invalid URL format", URL: urlString}
	}
	if parsedURL.Scheme == "" {
		return URLValidationError{Field: fieldName, Message: "URL must include a scheme (http:// or https://)", URL: urlString}
	}
	if parsedURL.Host == "" {
		return URLValidationError{Field: fieldName, Message: "URL must include a host", URL: urlString}
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if requireHTTPS && scheme != "https" {
		return URLValidationError{Field: fieldName, Message: "URL must use HTTPS", URL: urlString}
	}
	if scheme != "http" && scheme != "https" {
		return URLValidationError{Field: fieldName, Message: "URL scheme must be http or https", URL: urlString}
	}
	return nil
}

// ValidateBaseURL validates the root URL of an events API. A path is allowed
// and acts as a prefix for resource paths; query parameters and fragments are
// not, since resource paths are resolved against the base.
func ValidateBaseURL(urlString, fieldName string, requireHTTPS bool) error {
	if strings.TrimSpace(urlString) == "" {
		return URLValidationError{Field: fieldName, Message: "base URL is required", URL: urlString}
	}
	if err := ValidateURL(urlString, fieldName, requireHTTPS); err != nil {
		return err
	}

	parsedURL, _ := url.Parse(urlString)
	if parsedURL.RawQuery != "" {
		return URLValidationError{Field: fieldName, Message: "base URL must not contain query parameters", URL: urlString}
	}
	if parsedURL.Fragment != "" {
		return URLValidationError{Field: fieldName, Message: "base URL must not contain a fragment", URL: urlString}
	}
	if parsedURL.User != nil {
		return URLValidationError{Field: fieldName, Message: "base URL must not contain credentials", URL: urlString}
	}
	return nil
}

// SafeLink resolves link against base, the events API root, and returns it
// when the result is an absolute http(s) URL. Relative links such as
// "/media/poster.png" point at the backend, not at the console. Anything
// else yields "".
func SafeLink(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		if base == nil || strings.HasPrefix(link, "//") || strings.HasPrefix(link, "\\") {
			return ""
		}
		ref = base.ResolveReference(ref)
	}
	resolved := ref.String()
	if ValidateURL(resolved, "link", false) != nil {
		return ""
	}
	return resolved
}
