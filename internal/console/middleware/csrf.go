package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFProtection guards the console's HTML forms with gorilla/csrf's
// double-submit cookie.
//
// Cookie settings:
//   - Path=/ so every form page shares one token cookie
//   - HttpOnly, since no script reads the token
//   - SameSite=Lax: cross-site POSTs never carry the cookie
//   - Secure only when the console is served over HTTPS
//
// When secure is false the console runs on plain HTTP; requests are marked
// with csrf.PlaintextHTTPRequest so the TLS-only Referer check is skipped.
// Failures answer 403 with the gorilla/csrf failure reason.
func CSRFProtection(authKey []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	msg := "CSRF token validation failed"
	if reason := csrf.FailureReason(r); reason != nil {
		msg += ": " + reason.Error()
	}
	http.Error(w, msg, http.StatusForbidden)
}

// CSRFField is the hidden form input carrying the request's token. It is
// empty when the request did not pass through CSRFProtection.
func CSRFField(r *http.Request) string {
	return string(csrf.TemplateField(r))
}

// CSRFFieldName is the form field gorilla/csrf reads the token from.
const CSRFFieldName = "gorilla.csrf.Token"
