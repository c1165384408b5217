package console

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/Togather-Foundation/eventsdesk/internal/audit"
	"github.com/Togather-Foundation/eventsdesk/internal/console/middleware"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/sanitize"
	"github.com/Togather-Foundation/eventsdesk/internal/state"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/Togather-Foundation/eventsdesk/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Event fields the console knows how to display, in lookup order.
var (
	titleFields    = []string{"title", "name"}
	startFields    = []string{"start_date", "start", "starts_at", "date"}
	locationFields = []string{"location", "venue", "place"}
	formFields     = []string{"title", "start_date", "end_date", "location", "description"}
)

var notices = map[string]string{
	"created": "Event created.",
	"updated": "Event updated.",
	"deleted": "Event deleted.",
	"login":   "Token saved. API requests use it from the next start.",
	"logout":  "Logged out. API requests keep the current token until the next start.",
}

type pageContext struct {
	app      *ui.App
	w        http.ResponseWriter
	r        *http.Request
	csrf     template.HTML
	loggedIn bool
}

// view adapts a console view to an http.Handler. Views only run on a
// mounted App.
func view(fn func(pc *pageContext)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app, ok := ui.FromContext(r.Context())
		if !ok {
			http.Error(w, "console not mounted", http.StatusServiceUnavailable)
			return
		}
		pc := &pageContext{
			app:  app,
			w:    w,
			r:    r,
			csrf: template.HTML(middleware.CSRFField(r)), // #nosec G203 -- generated by gorilla/csrf
		}
		if p, ok := state.FromApp(app); ok {
			pc.loggedIn = p.Token() != ""
		}
		fn(pc)
	})
}

func (pc *pageContext) render(title, name string, data any, status int) {
	var body, nav bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		pc.fail(err, "render view")
		return
	}
	navData := struct {
		LoggedIn bool
		CSRF     template.HTML
	}{pc.loggedIn, pc.csrf}
	if err := templates.ExecuteTemplate(&nav, "nav", navData); err != nil {
		pc.fail(err, "render nav")
		return
	}
	pc.app.Render(pc.w, ui.Page{
		Title:  title,
		Body:   template.HTML(body.String()), // #nosec G203 -- html/template output
		Nav:    template.HTML(nav.String()),  // #nosec G203 -- html/template output
		Status: status,
	})
}

func (pc *pageContext) fail(err error, msg string) {
	middleware.LoggerFromContext(pc.r).Error().Err(err).Msg(msg)
	http.Error(pc.w, "internal server error", http.StatusInternalServerError)
}

// renderError shows a backend or transport failure.
func (pc *pageContext) renderError(err error) {
	status, message := describeError(err)
	middleware.LoggerFromContext(pc.r).Warn().Err(err).Int("status", status).Msg("events api call failed")
	pc.render("Error", "error", struct{ Message string }{message}, status)
}

func describeError(err error) (int, string) {
	var se *eventapi.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusBadGateway, "The events service rejected the request. Log in with a valid token and restart the console."
		case http.StatusNotFound:
			return http.StatusNotFound, "The events service does not know this event."
		}
		return http.StatusBadGateway, "The events service answered " + http.StatusText(se.StatusCode) + "."
	}
	return http.StatusBadGateway, "The events service is unreachable."
}

func (pc *pageContext) redirect(path string) {
	http.Redirect(pc.w, pc.r, path, http.StatusSeeOther)
}

type eventRow struct {
	ID          string
	Title       string
	Start       string
	Location    string
	Description template.HTML
	EditPath    string
	DeletePath  string
}

func newEventRow(e eventapi.Event) eventRow {
	id := e.ID()
	row := eventRow{
		ID:          id,
		Title:       sanitize.Value(firstField(e, titleFields)),
		Start:       sanitize.Value(firstField(e, startFields)),
		Location:    sanitize.Value(firstField(e, locationFields)),
		Description: sanitize.Field("description", e["description"]),
	}
	if row.Title == "" {
		row.Title = "(untitled)"
	}
	if id != "" {
		row.EditPath = "/events/" + eventPathID(id) + "/edit"
		row.DeletePath = "/events/" + eventPathID(id) + "/delete"
	}
	return row
}

func firstField(e eventapi.Event, keys []string) any {
	for _, k := range keys {
		if v, ok := e[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func listEvents(pc *pageContext) {
	data := struct {
		Events   []eventRow
		Notice   string
		Error    string
		LoggedIn bool
		CSRF     template.HTML
	}{
		Notice:   notices[pc.r.URL.Query().Get("notice")],
		LoggedIn: pc.loggedIn,
		CSRF:     pc.csrf,
	}

	status := http.StatusOK
	events, err := fetchEvents(pc)
	if err != nil {
		status, data.Error = describeError(err)
		middleware.LoggerFromContext(pc.r).Warn().Err(err).Msg("list events")
	}
	for _, e := range events {
		data.Events = append(data.Events, newEventRow(e))
	}
	pc.render("All events", "events", data, status)
}

func fetchEvents(pc *pageContext) ([]eventapi.Event, error) {
	resp, err := pc.app.Client().GetAllEvents(pc.r.Context())
	if err != nil {
		return nil, err
	}
	return eventapi.DecodeEvents(resp)
}

type formData struct {
	Heading string
	Action  string
	Values  map[string]string
	Image   string
	Error   string
	CSRF    template.HTML
}

func newEventForm(pc *pageContext) {
	pc.render("New event", "event-form", formData{
		Heading: "New event",
		Action:  "/events",
		Values:  map[string]string{},
		CSRF:    pc.csrf,
	}, http.StatusOK)
}

func editEventForm(pc *pageContext) {
	id := pc.r.PathValue("id")
	events, err := fetchEvents(pc)
	if err != nil {
		pc.renderError(err)
		return
	}
	for _, e := range events {
		if e.ID() != id {
			continue
		}
		values := make(map[string]string, len(formFields))
		for _, f := range formFields {
			values[f] = e.String(f)
		}
		if values["title"] == "" {
			values["title"] = e.String("name")
		}
		pc.render("Edit event", "event-form", formData{
			Heading: "Edit event",
			Action:  "/events/" + eventPathID(id),
			Values:  values,
			Image:   validation.SafeLink(pc.app.Client().Config().BaseURL(), e.String("image")),
			CSRF:    pc.csrf,
		}, http.StatusOK)
		return
	}
	notFound(pc)
}

func createEvent(pc *pageContext) {
	submitEvent(pc, "New event", "/events", "created", "", func(p *eventapi.Payload) (*http.Response, error) {
		return pc.app.Client().CreateEvent(pc.r.Context(), p)
	})
}

func updateEvent(pc *pageContext) {
	id := pc.r.PathValue("id")
	submitEvent(pc, "Edit event", "/events/"+eventPathID(id), "updated", id, func(p *eventapi.Payload) (*http.Response, error) {
		return pc.app.Client().UpdateEvent(pc.r.Context(), id, p)
	})
}

// submitEvent sends the submitted form to the backend. Validation errors
// from the backend re-render the form with the submitted values.
func submitEvent(pc *pageContext, heading, action, notice, id string, send func(*eventapi.Payload) (*http.Response, error)) {
	sub, err := parseSubmission(pc.r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(pc.w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(pc.w, "invalid form submission", http.StatusBadRequest)
		return
	}
	defer sub.Close()

	resp, err := send(sub.Payload)
	var saved eventapi.Event
	if err == nil {
		saved, err = eventapi.DecodeEvent(resp)
	}
	if id == "" && saved != nil {
		id = saved.ID()
	}
	audit.FromContext(pc.r.Context()).LogFromRequest(pc.r, "event."+strings.TrimSuffix(notice, "d"), "event", id, err,
		map[string]string{"title": sub.Values()["title"]})
	if err == nil {
		pc.redirect("/?notice=" + notice)
		return
	}

	var se *eventapi.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
		pc.render(heading, "event-form", formData{
			Heading: heading,
			Action:  action,
			Values:  sub.Values(),
			Error:   "The events service rejected the event: " + sanitize.Text(se.Body),
			CSRF:    pc.csrf,
		}, http.StatusUnprocessableEntity)
		return
	}
	pc.renderError(err)
}

func deleteEvent(pc *pageContext) {
	id := pc.r.PathValue("id")
	resp, err := pc.app.Client().DeleteEvent(pc.r.Context(), id)
	if err == nil {
		_, err = eventapi.DecodeEvent(resp)
	}
	audit.FromContext(pc.r.Context()).LogFromRequest(pc.r, "event.delete", "event", id, err, nil)
	if err != nil {
		pc.renderError(err)
		return
	}
	pc.redirect("/?notice=deleted")
}

type loginData struct {
	Next  string
	Error string
	CSRF  template.HTML
}

func loginForm(pc *pageContext) {
	pc.render("Log in", "login", loginData{
		Next: localPath(pc.r.URL.Query().Get("next")),
		CSRF: pc.csrf,
	}, http.StatusOK)
}

func login(pc *pageContext) {
	next := localPath(pc.r.PostFormValue("next"))
	token := strings.TrimSpace(pc.r.PostFormValue("token"))
	if token == "" {
		pc.render("Log in", "login", loginData{Next: next, Error: "Enter an API token.", CSRF: pc.csrf}, http.StatusBadRequest)
		return
	}
	p, ok := state.FromApp(pc.app)
	if !ok {
		pc.fail(errors.New("state plugin not installed"), "login")
		return
	}
	err := p.Auth().SetToken(token)
	audit.FromContext(pc.r.Context()).LogFromRequest(pc.r, "auth.login", "token", "", err, nil)
	if err != nil {
		pc.fail(err, "save token")
		return
	}
	middleware.LoggerFromContext(pc.r).Info().Msg("api token saved")
	if next != "" {
		pc.redirect(next)
		return
	}
	pc.redirect("/?notice=login")
}

func logout(pc *pageContext) {
	if p, ok := state.FromApp(pc.app); ok {
		err := p.Auth().Clear()
		audit.FromContext(pc.r.Context()).LogFromRequest(pc.r, "auth.logout", "token", "", err, nil)
		if err != nil {
			pc.fail(err, "clear token")
			return
		}
	}
	pc.redirect("/?notice=logout")
}

func notFound(pc *pageContext) {
	pc.render("Not found", "not-found", struct{ Path string }{pc.r.URL.Path}, http.StatusNotFound)
}

// localPath keeps only same-site absolute paths, so "next" cannot redirect
// off the console.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}

func eventPathID(id string) string {
	return url.PathEscape(id)
}
