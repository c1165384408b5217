package eventapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event is a single event as returned by the backend. The client does not
// assume a schema.
type Event map[string]any

// ID returns the event's identifier, or "" if the backend sent none.
func (e Event) ID() string {
	for _, key := range []string{"id", "pk", "@id"} {
		if v, ok := e[key]; ok && v != nil {
			s := fmt.Sprint(v)
			if key == "@id" {
				s = strings.TrimSuffix(s, "/")
				s = s[strings.LastIndex(s, "/")+1:]
			}
			return s
		}
	}
	return ""
}

// String returns the named field formatted for display.
func (e Event) String(key string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StatusError reports a non-2xx response seen by the decode helpers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("events api returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("events api returned %d", e.StatusCode)
}

// DecodeEvents reads and closes resp and parses the events list. Both a bare
// JSON array and a paginated object with a "results" array are accepted.
func DecodeEvents(resp *http.Response) ([]Event, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}

	var page struct {
		Results []Event `json:"results"`
		Items   []Event `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if page.Results != nil {
		return page.Results, nil
	}
	return page.Items, nil
}

// DecodeEvent reads and closes resp and parses a single event. An empty body
// (e.g. 204 after delete) yields a nil event.
func DecodeEvent(resp *http.Response) (Event, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
