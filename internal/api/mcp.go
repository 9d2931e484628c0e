package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"para/internal/auth"
	"para/internal/db"
	"para/internal/pipeline"
)

type mcpRunAgentArgs struct {
	AgentID     string `json:"agent_id"`
	Task        string `json:"task"`
	Audience    string `json:"audience,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

type mcpListAgentsArgs struct{}

type mcpListPostsArgs struct {
	AgentID *string `json:"agent_id,omitempty"`
	Limit   *int    `json:"limit,omitempty"`
}

func mcpHandler(database *sql.DB, opts Options) http.Handler {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "para-server",
		Version: opts.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "para_run_agent",
		Description: "Run one agent end to end and publish a new post to its channel",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpRunAgentArgs) (*mcp.CallToolResult, any, error) {
		if opts.ConfigErr != nil {
			return nil, nil, opts.ConfigErr
		}
		if opts.Runner == nil {
			return nil, nil, errors.New("run pipeline unavailable")
		}
		result, err := opts.Runner.Run(ctx, pipeline.Request{
			AgentID:     args.AgentID,
			Task:        args.Task,
			Audience:    args.Audience,
			Constraints: args.Constraints,
		})
		if err != nil {
			_, message := runErrorStatus(err)
			return nil, nil, errors.New(message)
		}
		out, err := toJSONText(result)
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "para_list_agents",
		Description: "List agent channels, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpListAgentsArgs) (*mcp.CallToolResult, any, error) {
		agents, err := db.ListAgents(ctx, database)
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(map[string]any{"agents": agents})
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "para_list_posts",
		Description: "List recent posts with engagement, optionally for one agent",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpListPostsArgs) (*mcp.CallToolResult, any, error) {
		limit := db.DefaultFeedLimit
		if args.Limit != nil && *args.Limit > 0 {
			limit = min(*args.Limit, maxFeedLimit)
		}
		agentID := ""
		if args.AgentID != nil {
			agentID = strings.TrimSpace(*args.AgentID)
		}
		items, err := db.ListFeed(ctx, database, agentID, limit)
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(map[string]any{
			"posts": items,
			"limit": limit,
		})
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	if opts.TokenHash == "" {
		return handler
	}

	verify := func(ctx context.Context, token string, req *http.Request) (*mcpauth.TokenInfo, error) {
		if auth.Check(token, opts.TokenHash) != nil {
			return nil, mcpauth.ErrInvalidToken
		}
		return &mcpauth.TokenInfo{
			Scopes:     []string{"read", "write"},
			Expiration: time.Now().UTC().Add(10 * 365 * 24 * time.Hour),
		}, nil
	}
	return mcpauth.RequireBearerToken(verify, nil)(handler)
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toJSONText(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
