// Package state is the console's state-management plugin. It owns the
// stores views read from; today that is the persisted auth store.
package state

import (
	"fmt"

	"github.com/Togather-Foundation/eventsdesk/internal/ui"
)

type pluginKey struct{}

// Plugin registers the stores on a ui.App.
type Plugin struct {
	auth *AuthStore
}

// New creates the plugin with stores persisted under dir.
func New(dir string) *Plugin {
	return &Plugin{auth: NewAuthStore(dir)}
}

// Install loads persisted state and makes the plugin injectable.
func (p *Plugin) Install(app *ui.App) error {
	if err := p.auth.Load(); err != nil {
		return fmt.Errorf("load auth store: %w", err)
	}
	app.Provide(pluginKey{}, p)
	return nil
}

// Auth returns the auth store.
func (p *Plugin) Auth() *AuthStore {
	return p.auth
}

// Token is the persisted API token, empty when logged out.
func (p *Plugin) Token() string {
	return p.auth.Token()
}

// FromApp returns the plugin installed on app.
func FromApp(app *ui.App) (*Plugin, bool) {
	v, ok := app.Inject(pluginKey{})
	if !ok {
		return nil, false
	}
	p, ok := v.(*Plugin)
	return p, ok
}
