package cmd

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/config"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommandHelp(t *testing.T) {
	output, err := execute(t, "", "serve", "--help")
	require.NoError(t, err)

	for _, expected := range []string{
		"Start the events web console",
		"--host",
		"--port",
		"console host address",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestServeCommandFlagParsing(t *testing.T) {
	_, err := execute(t, "", "serve", "--port", "invalid")
	assert.Error(t, err)

	_, err = execute(t, "", "serve", "--unknown")
	assert.Error(t, err)
}

func TestServeConsole(t *testing.T) {
	api, url := newFakeAPI(t, http.StatusOK, listBody)
	isolate(t, url)
	cfg, err := config.Load()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveConsole(ctx, cfg, zerolog.Nop(), ln) }()

	// Poll until bootstrap has mounted the UI root.
	home := "http://" + ln.Addr().String() + "/"
	var status int
	require.Eventually(t, func() bool {
		resp, err := http.Get(home)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		status = resp.StatusCode
		return status == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "/api/events/", api.last(t).Path)

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out, err := execute(t, "", "healthcheck", "--url", "http://"+ln.Addr().String()+"/readyz")
	require.NoError(t, err)
	assert.Contains(t, out, "Console is healthy")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("console did not shut down")
	}
}

func TestServeConsole_MissingAnchor(t *testing.T) {
	_, url := newFakeAPI(t, http.StatusOK, `[]`)
	isolate(t, url)
	t.Setenv("EVENTSDESK_UI_ANCHOR", "missing")
	cfg, err := config.Load()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = serveConsole(context.Background(), cfg, zerolog.Nop(), ln)
	assert.ErrorIs(t, err, ui.ErrAnchorNotFound)
}
