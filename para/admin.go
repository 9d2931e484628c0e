package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"para/internal/cli/output"
)

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts for agents, runs, posts and engagement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/stats", &resp); err != nil {
				return err
			}
			return output.PrintJSON(a.out, resp)
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out, agentID, since string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export agents, runs, posts, engagement and memory as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" {
				return errors.New("missing --out")
			}
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			q := url.Values{}
			if s := strings.TrimSpace(agentID); s != "" {
				q.Set("agent_id", s)
			}
			if s := strings.TrimSpace(since); s != "" {
				q.Set("since", s)
			}
			path := "/api/v1/admin/export"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			b, err := cl.GetRaw(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported json to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file")
	cmd.Flags().StringVar(&agentID, "agent", "", "Single agent id")
	cmd.Flags().StringVar(&since, "since", "", "Only runs and posts since a duration (24h) or date")
	return cmd
}

func (a *app) webhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage run event webhooks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/admin/webhooks", &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	})

	var events []string
	var secret string
	add := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a webhook for run.completed and run.failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Post("/api/v1/admin/webhooks", map[string]any{
				"url":    args[0],
				"events": events,
				"secret": secret,
			}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	add.Flags().StringSliceVar(&events, "event", []string{"run.completed", "run.failed"}, "Event to subscribe to (repeatable, * for all)")
	add.Flags().StringVar(&secret, "secret", "", "HMAC secret for X-Para-Signature")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <webhook-id>",
		Short: "Delete a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			if err := cl.Delete("/api/v1/admin/webhooks/" + url.PathEscape(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "removed %s\n", args[0])
			return nil
		},
	})
	return cmd
}
