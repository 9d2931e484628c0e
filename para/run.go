package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"para/internal/cli/client"
)

type runFlags struct {
	task        string
	audience    string
	constraints string
	all         bool
	simulate    bool
}

func (a *app) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [agent-id]",
		Short: "Run an agent (or every agent with --all) and publish a post",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.all == (len(args) == 1) {
				return errors.New("usage: para run <agent-id> | para run --all")
			}
			cl, _, err := a.client()
			if err != nil {
				return err
			}
			cl = cl.WithTimeout(client.RunTimeout)
			if !f.all {
				resp, err := a.runOne(cl, args[0], f)
				if err != nil {
					return err
				}
				return a.print(resp)
			}
			return a.runAll(cl, f)
		},
	}
	cmd.Flags().StringVar(&f.task, "task", defaultTask, "Task for the planner")
	cmd.Flags().StringVar(&f.audience, "audience", "", "Audience hint")
	cmd.Flags().StringVar(&f.constraints, "constraints", "", "Extra constraints")
	cmd.Flags().BoolVar(&f.all, "all", false, "Run every agent in turn")
	cmd.Flags().BoolVar(&f.simulate, "simulate", false, "Simulate audience feedback on each new post")
	return cmd
}

func (a *app) runOne(cl *client.Client, agentID string, f runFlags) (map[string]any, error) {
	body := map[string]any{
		"agent_id": agentID,
		"task":     strings.TrimSpace(f.task),
	}
	if s := strings.TrimSpace(f.audience); s != "" {
		body["audience"] = s
	}
	if s := strings.TrimSpace(f.constraints); s != "" {
		body["constraints"] = s
	}
	var resp map[string]any
	if err := cl.Post("/api/v1/run-agent", body, &resp); err != nil {
		return nil, err
	}
	if f.simulate {
		postID, _ := resp["post_id"].(string)
		var sim map[string]any
		if err := cl.Post("/api/v1/posts/"+url.PathEscape(postID)+"/simulate", nil, &sim); err != nil {
			return nil, fmt.Errorf("simulate feedback: %w", err)
		}
		resp["simulated"] = sim
	}
	return resp, nil
}

// runAll runs agents sequentially. A failed agent is reported and the rest
// still run.
func (a *app) runAll(cl *client.Client, f runFlags) error {
	var list struct {
		Agents []struct {
			ID          string `json:"id"`
			ChannelName string `json:"channel_name"`
		} `json:"agents"`
	}
	if err := cl.Get("/api/v1/agents", &list); err != nil {
		return err
	}
	if len(list.Agents) == 0 {
		return errors.New("no agents to run")
	}

	results := make([]any, 0, len(list.Agents))
	failed := 0
	for _, agent := range list.Agents {
		resp, err := a.runOne(cl, agent.ID, f)
		if err != nil {
			failed++
			fmt.Fprintf(a.errOut, "run %s (%s): %v\n", agent.ChannelName, agent.ID, err)
			continue
		}
		results = append(results, map[string]any{
			"id":       resp["run_id"],
			"agent_id": agent.ID,
			"status":   "completed",
			"post_id":  resp["post_id"],
		})
	}
	if err := a.print(map[string]any{"runs": results}); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d agent runs failed", failed, len(list.Agents))
	}
	return nil
}
