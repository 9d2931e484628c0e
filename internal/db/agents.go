package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"para/internal/idgen"
	"para/internal/models"
)

var ErrInvalidAgent = errors.New("channel name and mission are required")

func CreateAgent(ctx context.Context, database *sql.DB, channelName, mission string) (*models.Agent, error) {
	channelName = strings.TrimSpace(channelName)
	mission = strings.TrimSpace(mission)
	if channelName == "" || mission == "" {
		return nil, ErrInvalidAgent
	}
	a := models.Agent{
		ID:          idgen.New(),
		ChannelName: channelName,
		Mission:     mission,
		CreatedAt:   now(),
	}
	if _, err := database.ExecContext(ctx,
		`INSERT INTO agents (id, channel_name, mission, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.ChannelName, a.Mission, a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgents returns agents newest first.
func ListAgents(ctx context.Context, database *sql.DB) ([]models.Agent, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, channel_name, mission, created_at
FROM agents
ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]models.Agent, 0)
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.ChannelName, &a.Mission, &a.CreatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetAgent returns sql.ErrNoRows for an unknown id.
func GetAgent(ctx context.Context, database *sql.DB, id string) (*models.Agent, error) {
	var a models.Agent
	err := database.QueryRowContext(ctx, `
SELECT id, channel_name, mission, created_at
FROM agents
WHERE id = ?`, id).
		Scan(&a.ID, &a.ChannelName, &a.Mission, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func CountAgents(ctx context.Context, database *sql.DB) (int, error) {
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(1) FROM agents`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
