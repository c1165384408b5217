package eventapi

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"paginated results", `{"count":1,"results":[{"id":1}]}`, 1},
		{"items envelope", `{"items":[{"@id":"https://x/events/01H/"}]}`, 1},
		{"empty", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := DecodeEvents(response(http.StatusOK, tt.body))
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}
}

func TestDecodeEvents_StatusError(t *testing.T) {
	_, err := DecodeEvents(response(http.StatusUnauthorized, `{"detail":"Invalid token."}`))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "Invalid token.")
}

func TestDecodeEvent_EmptyBody(t *testing.T) {
	event, err := DecodeEvent(response(http.StatusNoContent, ""))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestEventID(t *testing.T) {
	assert.Equal(t, "12", Event{"id": float64(12)}.ID())
	assert.Equal(t, "abc", Event{"pk": "abc"}.ID())
	assert.Equal(t, "01H", Event{"@id": "https://x/events/01H/"}.ID())
	assert.Equal(t, "", Event{"title": "x"}.ID())
}
