package main

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"channels"},
		Short:   "List, create and inspect agent channels",
	}
	cmd.AddCommand(a.agentsListCmd(), a.agentsCreateCmd(), a.agentsShowCmd(), a.agentsMemoryCmd())
	return cmd
}

func (a *app) agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/agents", &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) agentsCreateCmd() *cobra.Command {
	var channel, mission string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(channel) == "" || strings.TrimSpace(mission) == "" {
				return errors.New("usage: para agents create --channel <name> --mission <text>")
			}
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Post("/api/v1/agents", map[string]any{
				"channel_name": strings.TrimSpace(channel),
				"mission":      strings.TrimSpace(mission),
			}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel name")
	cmd.Flags().StringVar(&mission, "mission", "", "Channel mission")
	return cmd
}

func (a *app) agentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/agents/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) agentsMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memory <agent-id>",
		Short: "Show the agent's working memory summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := cl.Get("/api/v1/agents/"+url.PathEscape(args[0])+"/memory", &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}
