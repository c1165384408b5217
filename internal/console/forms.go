package console

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/Togather-Foundation/eventsdesk/internal/console/middleware"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/sanitize"
)

// maxFormMemory is how much of a multipart form is kept in memory before
// file parts spill to disk. The overall body size is capped by the
// RequestSize middleware.
const maxFormMemory = 8 << 20

// submission is a parsed event form, ready to send to the backend.
type submission struct {
	Payload *eventapi.Payload
	values  map[string][]string
	files   []io.Closer
}

// parseSubmission turns a submitted form into a payload: cleaned text
// fields in name order, then every non-empty uploaded file. The CSRF token
// is never forwarded.
func parseSubmission(r *http.Request) (*submission, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	values := sanitize.Form(r.PostForm)
	delete(values, middleware.CSRFFieldName)

	sub := &submission{Payload: eventapi.NewPayload(), values: values}
	for _, name := range sortedKeys(values) {
		for _, v := range values[name] {
			sub.Payload.Add(name, v)
		}
	}

	if r.MultipartForm == nil {
		return sub, nil
	}
	for _, name := range sortedKeys(r.MultipartForm.File) {
		for _, fh := range r.MultipartForm.File[name] {
			if fh.Filename == "" || fh.Size == 0 {
				continue
			}
			f, err := fh.Open()
			if err != nil {
				sub.Close()
				return nil, fmt.Errorf("open upload %s: %w", name, err)
			}
			sub.files = append(sub.files, f)
			sub.Payload.AddFile(name, fh.Filename, f)
		}
	}
	return sub, nil
}

// Values is the first value of each text field, for re-rendering the form.
func (s *submission) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for name, vs := range s.values {
		if len(vs) > 0 {
			out[name] = vs[0]
		}
	}
	return out
}

// Close releases the opened uploads.
func (s *submission) Close() {
	for _, f := range s.files {
		_ = f.Close()
	}
	s.files = nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
