package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Healthcheck exit codes.
const (
	exitHealthy         = 0
	exitUnhealthy       = 1
	exitInvalidResponse = 2
)

// exitCodeError carries the process exit code a command wants.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// HealthResponse matches the /readyz body served by the console.
type HealthResponse struct {
	Status string                    `json:"status"`
	Checks map[string]map[string]any `json:"checks,omitempty"`
}

type healthcheckFlags struct {
	timeout int
	url     string
}

func newHealthcheckCommand(g *globalFlags) *cobra.Command {
	f := &healthcheckFlags{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the console is healthy",
		Long: `Performs a health check by calling the console's /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the console is healthy, non-zero otherwise.

Exit codes:
  0 - Console is healthy
  1 - Console is unhealthy or unreachable
  2 - Invalid response from console`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd, g, f)
		},
	}
	cmd.Flags().IntVar(&f.timeout, "timeout", 5, "timeout in seconds")
	cmd.Flags().StringVar(&f.url, "url", "", "health check URL (default: http://{EVENTSDESK_UI_HOST}:{EVENTSDESK_UI_PORT}/readyz)")
	return cmd
}

func runHealthcheck(cmd *cobra.Command, g *globalFlags, f *healthcheckFlags) error {
	target := f.url
	if target == "" {
		cfg, err := loadConfig(g)
		if err != nil {
			return &exitCodeError{code: exitUnhealthy, err: err}
		}
		host := cfg.UI.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		target = "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.UI.Port)) + "/readyz"
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(f.timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &exitCodeError{code: exitUnhealthy, err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &exitCodeError{code: exitUnhealthy, err: fmt.Errorf("health check failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &exitCodeError{code: exitUnhealthy, err: fmt.Errorf("unhealthy: status %d", resp.StatusCode)}
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return &exitCodeError{code: exitInvalidResponse, err: fmt.Errorf("parsing health check response: %w", err)}
	}
	if health.Status != "healthy" {
		return &exitCodeError{code: exitUnhealthy, err: fmt.Errorf("unhealthy: status=%s", health.Status)}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Console is healthy (%s)\n", target)
	return nil
}
