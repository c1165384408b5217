// Package sanitize cleans backend event data before the console renders it
// and submitted form values before they are sent to the backend.
package sanitize

import (
	"encoding/json"
	"html"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows safe user-generated content with basic formatting:
	// paragraphs, emphasis, links, lists and line breaks.
	UGCPolicy = bluemonday.UGCPolicy()
)

// richFields may keep basic formatting. Everything else is plain text.
var richFields = map[string]bool{
	"description": true,
	"details":     true,
	"summary":     true,
}

// Text strips all markup. The result is unescaped plain text, so it can be
// handed to html/template without double escaping.
func Text(input string) string {
	return html.UnescapeString(StrictPolicy.Sanitize(input))
}

// HTML keeps safe formatting and drops scripts, handlers and styles.
func HTML(input string) template.HTML {
	return template.HTML(UGCPolicy.Sanitize(input)) // #nosec G203 -- sanitized by bluemonday
}

// Value renders one decoded JSON value of an event as plain text.
func Value(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return Text(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := Value(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return Text(string(data))
	}
}

// Field renders an event field for display: rich fields keep formatting,
// the rest become escaped plain text.
func Field(name string, v any) template.HTML {
	if s, ok := v.(string); ok && richFields[name] {
		return HTML(s)
	}
	return template.HTML(template.HTMLEscapeString(Value(v))) // #nosec G203 -- escaped
}

// Form returns a copy of submitted text fields with surrounding whitespace
// trimmed. Values without markup are kept byte for byte, so text such as
// "Rock & roll < 10pm" reaches the backend as typed. Values with markup are
// cleaned: rich fields go through UGCPolicy, the rest lose all tags.
func Form(values url.Values) url.Values {
	if values == nil {
		return nil
	}
	out := make(url.Values, len(values))
	for name, vals := range values {
		cleaned := make([]string, len(vals))
		for i, v := range vals {
			v = strings.TrimSpace(v)
			switch {
			case !HasMarkup(v):
				cleaned[i] = v
			case richFields[name]:
				cleaned[i] = UGCPolicy.Sanitize(v)
			default:
				cleaned[i] = Text(v)
			}
		}
		out[name] = cleaned
	}
	return out
}

// HasMarkup reports whether s contains HTML tags or comments. A bare "<"
// in prose is not markup.
func HasMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	return Text(s) != s
}
