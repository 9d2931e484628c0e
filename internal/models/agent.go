package models

import "encoding/json"

type Agent struct {
	ID          string `json:"id"`
	ChannelName string `json:"channel_name"`
	Mission     string `json:"mission"`
	CreatedAt   string `json:"created_at"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusError     = "error"
)

type Run struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	Task      string          `json:"task"`
	Status    string          `json:"status"`
	Error     *string         `json:"error,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Post      json.RawMessage `json:"post,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// Memory is the per-agent working memory row. Summary is kept opaque at the
// storage layer so older summaries with unknown keys survive round trips.
type Memory struct {
	AgentID   string          `json:"agent_id"`
	Summary   json.RawMessage `json:"summary"`
	UpdatedAt string          `json:"updated_at"`
}
