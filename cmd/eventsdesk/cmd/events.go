package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Togather-Foundation/eventsdesk/internal/bootstrap"
	"github.com/Togather-Foundation/eventsdesk/internal/config"
	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
	"github.com/Togather-Foundation/eventsdesk/internal/state"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newEventsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, create, update and delete events",
		Long: `Manage events through the backend's api/events/ resource.

Requests carry "Authorization: Token <token>" when a token was stored with
"eventsdesk auth login".

Examples:
  # List events as a table
  eventsdesk events list

  # List events as YAML
  eventsdesk events list --format yaml

  # Create an event with a poster
  eventsdesk events create --field title="Launch party" --field start_date=2026-05-01T19:00 --file image=poster.png

  # Rename event 42
  eventsdesk events update 42 --field title="Launch party (moved)"

  # Delete event 42
  eventsdesk events delete 42`,
	}

	cmd.AddCommand(newEventsListCommand(g))
	cmd.AddCommand(newEventsCreateCommand(g))
	cmd.AddCommand(newEventsUpdateCommand(g))
	cmd.AddCommand(newEventsDeleteCommand(g))
	return cmd
}

func newEventsListCommand(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			client, err := newAPIClient(g)
			if err != nil {
				return err
			}
			resp, err := client.GetAllEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			events, err := eventapi.DecodeEvents(resp)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			return printEvents(cmd.OutOrStdout(), format, events)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format (table, json, yaml)")
	return cmd
}

// payloadFlags collect the form of create and update.
type payloadFlags struct {
	fields []string
	files  []string
	format string
}

func (f *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil, "form field as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "file upload as field=path (repeatable)")
	cmd.Flags().StringVarP(&f.format, "format", "o", "json", "output format (json, yaml, table)")
}

func newEventsCreateCommand(g *globalFlags) *cobra.Command {
	var f payloadFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			client, err := newAPIClient(g)
			if err != nil {
				return err
			}
			payload, closeFiles, err := f.payload()
			if err != nil {
				return err
			}
			defer closeFiles()

			resp, err := client.CreateEvent(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("create event: %w", err)
			}
			event, err := eventapi.DecodeEvent(resp)
			if err != nil {
				return fmt.Errorf("create event: %w", err)
			}
			return printEvent(cmd.OutOrStdout(), f.format, event)
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsUpdateCommand(g *globalFlags) *cobra.Command {
	var f payloadFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			client, err := newAPIClient(g)
			if err != nil {
				return err
			}
			payload, closeFiles, err := f.payload()
			if err != nil {
				return err
			}
			defer closeFiles()

			resp, err := client.UpdateEvent(cmd.Context(), args[0], payload)
			if err != nil {
				return fmt.Errorf("update event %s: %w", args[0], err)
			}
			event, err := eventapi.DecodeEvent(resp)
			if err != nil {
				return fmt.Errorf("update event %s: %w", args[0], err)
			}
			return printEvent(cmd.OutOrStdout(), f.format, event)
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(g)
			if err != nil {
				return err
			}
			resp, err := client.DeleteEvent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete event %s: %w", args[0], err)
			}
			if _, err := eventapi.DecodeEvent(resp); err != nil {
				return fmt.Errorf("delete event %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", args[0])
			return nil
		},
	}
}

// newAPIClient builds a client the way the console's bootstrap does, minus
// the UI: base URL from config, auth header from the stored token.
func newAPIClient(g *globalFlags) (*eventapi.Client, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	store := state.NewAuthStore(cfg.State.Dir)
	if err := store.Load(); err != nil {
		return nil, err
	}
	clientCfg, err := bootstrap.ClientConfigFor(cfg.API.BaseURL, store)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging, os.Stderr)
	return eventapi.NewClient(clientCfg, clientOptions(cfg, logger)...), nil
}

// payload turns --field and --file flags into a multipart payload. The
// returned func closes opened files.
func (f *payloadFlags) payload() (*eventapi.Payload, func(), error) {
	p := eventapi.NewPayload()
	var opened []*os.File
	closeAll := func() {
		for _, file := range opened {
			_ = file.Close()
		}
	}

	for _, kv := range f.fields {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid --field %q: want name=value", kv)
		}
		p.Add(name, value)
	}
	for _, kv := range f.files {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || name == "" || path == "" {
			closeAll()
			return nil, nil, fmt.Errorf("invalid --file %q: want field=path", kv)
		}
		file, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		opened = append(opened, file)
		p.AddFile(name, filepath.Base(path), file)
	}
	return p, closeAll, nil
}

func checkFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported format %q (want table, json or yaml)", format)
}

func printEvents(out io.Writer, format string, events []eventapi.Event) error {
	if events == nil {
		events = []eventapi.Event{}
	}
	switch format {
	case "json":
		return writeJSON(out, events)
	case "yaml":
		return writeYAML(out, events)
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTARTS\tLOCATION")
	for _, e := range events {
		title := e.String("title")
		if title == "" {
			title = e.String("name")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID(), title, e.String("start_date"), e.String("location"))
	}
	return tw.Flush()
}

func printEvent(out io.Writer, format string, event eventapi.Event) error {
	switch format {
	case "yaml":
		return writeYAML(out, event)
	case "table":
		keys := make([]string, 0, len(event))
		for k := range event {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s:\t%s\n", k, event.String(k))
		}
		return tw.Flush()
	}
	return writeJSON(out, event)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(out io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = out.Write(data)
	return err
}
