// ABOUTME: One-shot CLI commands: site key management, plugin lookups, embeds and request logs.
// ABOUTME: Each command opens the store or client it needs and writes to the command's output.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389/wpembed/internal/config"
	"github.com/2389/wpembed/internal/oembed"
	"github.com/2389/wpembed/internal/sitekey"
	"github.com/2389/wpembed/internal/store"
)

func newKeyCmd() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the site key",
		Long: `The site key is the shared secret every oEmbed request must carry in the
wpdotorg_oembed query parameter. It is generated on first use and stored in
the database.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the site key, creating it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := sitekey.NewKeeper(s).Key(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the site key with a fresh one",
		Long: `Discard the current site key and generate a new one.

Warning: every consumer registered with the old key gets 403 until it is
updated with the new key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := resetKey(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	keyCmd.AddCommand(showCmd, resetCmd)
	return keyCmd
}

func resetKey(ctx context.Context, s *store.Store) (string, error) {
	keys := sitekey.NewKeeper(s)
	if err := keys.Reset(ctx); err != nil {
		return "", err
	}
	return keys.Key(ctx)
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <slug>",
		Short: "Fetch plugin information from WordPress.org",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lookup(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
}

func lookup(ctx context.Context, cfg config.Config, slug string, out io.Writer) error {
	info, err := newPluginClient(cfg).GetPluginInfo(ctx, slug)
	if err != nil {
		if isLookupFailure(err) {
			return fmt.Errorf("no plugin information for %q: %w", slug, err)
		}
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func newEmbedCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "embed <url>",
		Short: "Resolve a plugin URL through a running server, as an oEmbed consumer would",
		Long: `Look the URL up in the provider registry, request the embed from the
server at WPEMBED_HOME_URL using the stored site key, and print the HTML.

Example:
  wpembed embed http://wordpress.org/extend/plugins/akismet/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return embed(cmd.Context(), cfg, s, args[0], asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the whole oEmbed response")
	cmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port of the running server")
	cmd.Flags().StringVar(&cfg.HomeURL, "home-url", cfg.HomeURL, "Public URL of the running server")
	return cmd
}

func embed(ctx context.Context, cfg config.Config, s *store.Store, target string, asJSON bool, out io.Writer) error {
	key, err := sitekey.NewKeeper(s).Key(ctx)
	if err != nil {
		return err
	}
	provider, err := oembed.NewPluginProvider(cfg.SiteURL(), key)
	if err != nil {
		return err
	}
	registry := oembed.NewRegistry()
	if err := registry.Register(provider); err != nil {
		return err
	}

	resp, err := oembed.NewConsumer(registry, cfg.APITimeout).Fetch(ctx, target)
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Fprintln(out, resp.HTML)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func newLogsCmd() *cobra.Command {
	q := &store.RequestLogQuery{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return printLogs(s, q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 50, "Number of entries")
	cmd.Flags().StringVar(&q.Route, "route", "", "Only this route (oembed, site, assets, unknown)")
	cmd.Flags().IntVar(&q.StatusCode, "status", 0, "Only this status code")
	return cmd
}

func printLogs(s *store.Store, q *store.RequestLogQuery, out io.Writer) error {
	logs, err := s.GetRequestLogs(q)
	if err != nil {
		return fmt.Errorf("read request logs: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tROUTE\tMETHOD\tPATH\tSTATUS\tDURATION\tIP")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
			l.Timestamp.Format("2006-01-02 15:04:05"), l.Route, l.Method, l.Path, l.StatusCode, l.DurationMs, l.IPAddress)
	}
	return tw.Flush()
}
