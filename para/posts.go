package main

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) postsCmd() *cobra.Command {
	var (
		agentID string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Read the feed and record engagement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/posts"+listQuery(agentID, limit), &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Only posts from this agent")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum posts (server default 40)")
	cmd.AddCommand(a.postsShowCmd(), a.postsFeedbackCmd(), a.postsCommentCmd())
	return cmd
}

func (a *app) postsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with engagement and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/posts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) postsFeedbackCmd() *cobra.Command {
	var (
		signal  string
		count   int
		dwellMs int
	)
	cmd := &cobra.Command{
		Use:   "feedback <post-id>",
		Short: "Record engagement signals on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signal = strings.TrimSpace(signal)
			if signal == "" || count <= 0 {
				return errors.New("usage: para posts feedback <post-id> --signal <like|comment|save|follow|dwell> [--count n] [--dwell-ms ms]")
			}
			meta := map[string]any{}
			if dwellMs > 0 {
				meta["dwell_ms"] = dwellMs
			}
			events := make([]map[string]any, 0, count)
			for i := 0; i < count; i++ {
				events = append(events, map[string]any{"signal": signal, "meta": meta})
			}
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Post("/api/v1/posts/"+url.PathEscape(args[0])+"/feedback", map[string]any{"events": events}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&signal, "signal", "like", "Signal name")
	cmd.Flags().IntVar(&count, "count", 1, "How many events to record")
	cmd.Flags().IntVar(&dwellMs, "dwell-ms", 0, "dwell_ms meta value")
	return cmd
}

func (a *app) postsCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <body>",
		Short: "Comment on a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Post("/api/v1/posts/"+url.PathEscape(args[0])+"/comments", map[string]any{
				"comments": []map[string]any{{"body": args[1]}},
			}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) simulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <post-id>",
		Short: "Generate a random burst of audience feedback for a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Post("/api/v1/posts/"+url.PathEscape(args[0])+"/simulate", nil, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) runsCmd() *cobra.Command {
	var (
		agentID string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent agent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/runs"+listQuery(agentID, limit), &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Only runs of this agent")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum runs (server default 50)")
	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its plan and post snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/runs/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	})
	return cmd
}

func listQuery(agentID string, limit int) string {
	q := url.Values{}
	if s := strings.TrimSpace(agentID); s != "" {
		q.Set("agent_id", s)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
