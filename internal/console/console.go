// Package console is the server-rendered events console mounted on the UI
// root: its route table, views and the HTTP middleware chain in front of it.
package console

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/Togather-Foundation/eventsdesk/internal/router"
)

// Route names.
const (
	RouteEvents      = "events"
	RouteNewEvent    = "event-new"
	RouteCreateEvent = "event-create"
	RouteEditEvent   = "event-edit"
	RouteUpdateEvent = "event-update"
	RouteDeleteEvent = "event-delete"
	RouteLogin       = "login"
	RouteLoginSubmit = "login-submit"
	RouteLogout      = "logout"
	RouteNotFound    = "not-found"
)

// LoginPath is where auth-only routes send logged-out users.
const LoginPath = "/login"

// Routes is the console's route table.
func Routes() []router.Route {
	return []router.Route{
		{Name: RouteEvents, Pattern: "GET /{$}", Handler: view(listEvents)},
		{Name: RouteNewEvent, Pattern: "GET /events/new", Handler: view(newEventForm), RequiresAuth: true},
		{Name: RouteCreateEvent, Pattern: "POST /events", Handler: view(createEvent), RequiresAuth: true},
		{Name: RouteEditEvent, Pattern: "GET /events/{id}/edit", Handler: view(editEventForm), RequiresAuth: true},
		{Name: RouteUpdateEvent, Pattern: "POST /events/{id}", Handler: view(updateEvent), RequiresAuth: true},
		{Name: RouteDeleteEvent, Pattern: "POST /events/{id}/delete", Handler: view(deleteEvent), RequiresAuth: true},
		{Name: RouteLogin, Pattern: "GET /login", Handler: view(loginForm)},
		{Name: RouteLoginSubmit, Pattern: "POST /login", Handler: view(login)},
		{Name: RouteLogout, Pattern: "POST /logout", Handler: view(logout)},
		{Name: RouteNotFound, Pattern: "GET /not-found", Handler: view(notFound)},
	}
}

// NewRouter builds the console router. Auth-only routes redirect to the
// login page while tokens is empty.
func NewRouter(startPath string, tokens router.TokenSource) (*router.Router, error) {
	r, err := router.New(router.Options{StartPath: startPath, NotFound: RouteNotFound}, Routes()...)
	if err != nil {
		return nil, fmt.Errorf("build console router: %w", err)
	}
	r.BeforeEach(router.RequireAuth(tokens, LoginPath))
	return r, nil
}

// CSRFKey derives the 32-byte CSRF key from the configured secret. With no
// secret a random key is generated, so form tokens do not survive restarts.
func CSRFKey(secret string) ([]byte, error) {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:], nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	return key, nil
}
