package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/eventsdesk/internal/state"
	"github.com/spf13/cobra"
)

func newAuthCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API token",
		Long: `Manage the API token sent as "Authorization: Token <token>".

The token is stored in the state directory (EVENTSDESK_STATE_DIR) and read
once when the console or a command starts. A running console picks up a new
token on its next start.`,
	}
	cmd.AddCommand(newAuthLoginCommand(g))
	cmd.AddCommand(newAuthLogoutCommand(g))
	cmd.AddCommand(newAuthStatusCommand(g))
	return cmd
}

func newAuthLoginCommand(g *globalFlags) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		Long: `Store an API token. Without --token the token is read from the first
line of standard input, so it stays out of shell history:

  echo "$EVENTS_TOKEN" | eventsdesk auth login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuthStore(g)
			if err != nil {
				return err
			}
			if token == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token given: pass --token or pipe it on stdin")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token must not be empty")
			}
			if err := store.SetToken(token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (default: read from stdin)")
	return cmd
}

func newAuthLogoutCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuthStore(g)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newAuthStatusCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an API token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuthStore(g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if token := store.Token(); token != "" {
				fmt.Fprintf(out, "Logged in (token %s)\n", maskToken(token))
			} else {
				fmt.Fprintln(out, "Logged out")
			}
			fmt.Fprintf(out, "Store: %s\n", store.Path())
			return nil
		},
	}
}

func openAuthStore(g *globalFlags) (*state.AuthStore, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	store := state.NewAuthStore(cfg.State.Dir)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// maskToken shows only the last four characters.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
