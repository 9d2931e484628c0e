package db

import (
	"context"
	"database/sql"
	"fmt"

	"para/internal/models"
)

const (
	SeedChannelName = "Noir Circuit"
	SeedMission     = "Find the darkest cyberpunk aesthetics."
)

// SeedDefaultAgent creates the starter channel when the store has no agents.
// It returns nil when agents already exist.
func SeedDefaultAgent(ctx context.Context, database *sql.DB) (*models.Agent, error) {
	count, err := CountAgents(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}
	if count > 0 {
		return nil, nil
	}
	agent, err := CreateAgent(ctx, database, SeedChannelName, SeedMission)
	if err != nil {
		return nil, fmt.Errorf("seed agent %q: %w", SeedChannelName, err)
	}
	return agent, nil
}
