package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Togather-Foundation/eventsdesk/internal/config"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/metrics"
	"github.com/Togather-Foundation/eventsdesk/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// newRootCommand builds the full command tree. Each call returns a fresh
// tree so tests do not share flag state.
func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "eventsdesk",
		Short: "Eventsdesk - web console and CLI for an events backend",
		Long: `Eventsdesk manages the events of an events backend through its REST API
(api/events/).

It provides:
- A web console (serve) to list, create, edit and delete events
- Scriptable event commands (events list/create/update/delete)
- API token management (auth login/logout/status)
- A container health check (healthcheck)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Run the console by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, serveFlags{})
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(newServeCommand(g))
	root.AddCommand(newEventsCommand(g))
	root.AddCommand(newAuthCommand(g))
	root.AddCommand(newHealthcheckCommand(g))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. Errors without
// an explicit code exit with 1.
func exitCode(err error) int {
	if err == nil {
		return exitHealthy
	}
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}

// loadConfig reads env vars and the optional config file, then applies flag
// overrides.
func loadConfig(g *globalFlags) (config.Config, error) {
	cfg, err := config.LoadFile(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	return cfg, nil
}

// clientOptions is the transport stack every events API client uses:
// request IDs, tracing spans and request metrics.
func clientOptions(cfg config.Config, logger zerolog.Logger) []eventapi.Option {
	return []eventapi.Option{
		eventapi.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		eventapi.WithTransport(metrics.InstrumentTransport(telemetry.Transport(eventapi.RequestIDTransport(nil)))),
		eventapi.WithLogger(logger),
	}
}
