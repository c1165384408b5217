package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/audit"
	"github.com/Togather-Foundation/eventsdesk/internal/bootstrap"
	"github.com/Togather-Foundation/eventsdesk/internal/config"
	"github.com/Togather-Foundation/eventsdesk/internal/console"
	"github.com/Togather-Foundation/eventsdesk/internal/metrics"
	"github.com/Togather-Foundation/eventsdesk/internal/state"
	"github.com/Togather-Foundation/eventsdesk/internal/telemetry"
	"github.com/Togather-Foundation/eventsdesk/internal/ui"
	"github.com/Togather-Foundation/eventsdesk/web"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveFlags struct {
	host string
	port int
}

func newServeCommand(g *globalFlags) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the events web console",
		Long: `Start the events web console.

The console will:
- Load configuration from environment variables (or --config file if provided)
- Start listening right away; pages answer 503 until the console is mounted
- Install the state and router plugins and wait for the initial route
- Send "Authorization: Token <token>" to the events API when a token is stored
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  eventsdesk serve

  # Start on a specific host and port
  eventsdesk serve --host 0.0.0.0 --port 8090

  # Talk to a remote backend
  EVENTSDESK_API_BASE_URL=https://events.example.org/ eventsdesk serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "console host address (default: 127.0.0.1)")
	cmd.Flags().IntVar(&f.port, "port", 0, "console port (default: 5173)")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f serveFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if f.host != "" {
		cfg.UI.Host = f.host
	}
	if f.port != 0 {
		cfg.UI.Port = f.port
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	logger.Info().Str("version", Version).Msg("starting eventsdesk console")

	metrics.Init(Version, GitCommit, BuildDate)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize tracing")
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error().Err(err).Msg("tracing shutdown error")
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.UIAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.UIAddr(), err)
	}
	return serveConsole(ctx, cfg, logger, ln)
}

// serveConsole runs the console on ln until ctx is done. The server accepts
// connections while bootstrap runs; the UI root answers 503 until mounted.
func serveConsole(ctx context.Context, cfg config.Config, logger zerolog.Logger, ln net.Listener) error {
	store := state.New(cfg.State.Dir)
	rt, err := console.NewRouter(cfg.UI.StartPath, store)
	if err != nil {
		return err
	}
	csrfKey, err := console.CSRFKey(cfg.UI.CSRFKey)
	if err != nil {
		return err
	}
	if cfg.UI.CSRFKey == "" {
		logger.Warn().Msg("EVENTSDESK_CSRF_KEY not set; open forms stop working after a restart")
	}

	app := ui.New(web.Shell(), logger)
	server := &http.Server{
		Handler: console.Handler(app, console.HandlerOptions{
			Logger:             logger,
			CSRFKey:            csrfKey,
			RateLimitPerMinute: cfg.RateLimit.PerMinute,
			MaxUploadBytes:     cfg.UI.MaxUploadBytes,
			Metrics:            metrics.Handler(),
			Audit:              audit.NewLogger(logger),
			Version:            Version,
		}),
		ReadTimeout:       30 * time.Second, // Uploads pass through the console
		WriteTimeout:      cfg.API.Timeout + 10*time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		res, err := bootstrap.Run(gctx, bootstrap.Options{
			BaseURL:       cfg.API.BaseURL,
			Anchor:        cfg.UI.Anchor,
			NewRoot:       func() bootstrap.Root { return app },
			Store:         store,
			Router:        rt,
			ClientOptions: clientOptions(cfg, logger),
			Logger:        logger,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		logger.Info().
			Str("api", res.Config.BaseURL().String()).
			Bool("authenticated", res.Config.Header("Authorization") != "").
			Str("route", rt.Current().FullPath()).
			Msg("console mounted")
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return group.Wait()
}
