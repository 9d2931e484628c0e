package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"para/internal/models"
)

// GetMemory returns sql.ErrNoRows when the agent has no summary yet.
func GetMemory(ctx context.Context, database *sql.DB, agentID string) (*models.Memory, error) {
	var (
		m       models.Memory
		summary string
	)
	err := database.QueryRowContext(ctx,
		`SELECT agent_id, summary, updated_at FROM agent_memory WHERE agent_id = ?`, agentID).
		Scan(&m.AgentID, &summary, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Summary = json.RawMessage(summary)
	return &m, nil
}

// UpsertMemory replaces the agent's summary; the last writer wins.
func UpsertMemory(ctx context.Context, database *sql.DB, agentID string, summary json.RawMessage, updatedAt time.Time) error {
	_, err := database.ExecContext(ctx, `
INSERT INTO agent_memory (agent_id, summary, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
    summary = excluded.summary,
    updated_at = excluded.updated_at`,
		agentID, string(summary), formatTime(updatedAt))
	return err
}
