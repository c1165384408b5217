package router

import (
	"context"
	"net/http"
	"net/url"
)

// TokenSource yields the current API token ("" when logged out).
type TokenSource interface {
	Token() string
}

// RequireAuth sends navigations to auth-only routes to loginPath while
// tokens has no token. For page views the original target is kept in the
// "next" query parameter. Form submissions are not kept: the redirect after
// login is a GET, which would not reach the same route.
func RequireAuth(tokens TokenSource, loginPath string) Guard {
	return func(ctx context.Context, to Location) (string, error) {
		if !to.RequiresAuth || tokens.Token() != "" {
			return "", nil
		}
		switch to.Method {
		case "", http.MethodGet, http.MethodHead:
			return loginPath + "?" + url.Values{"next": {to.FullPath()}}.Encode(), nil
		default:
			return loginPath, nil
		}
	}
}
