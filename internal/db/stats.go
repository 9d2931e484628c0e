package db

import (
	"context"
	"database/sql"
)

type Stats struct {
	Agents        int `json:"agents"`
	Runs          int `json:"runs"`
	RunsRunning   int `json:"runs_running"`
	RunsCompleted int `json:"runs_completed"`
	RunsFailed    int `json:"runs_failed"`
	Posts         int `json:"posts"`
	Feedback      int `json:"feedback"`
	Comments      int `json:"comments"`
	Memories      int `json:"memories"`
}

func GetStats(ctx context.Context, database *sql.DB) (Stats, error) {
	stats := Stats{}
	queries := []struct {
		sql string
		dst *int
	}{
		{`SELECT COUNT(1) FROM agents`, &stats.Agents},
		{`SELECT COUNT(1) FROM agent_runs`, &stats.Runs},
		{`SELECT COUNT(1) FROM agent_runs WHERE status = 'running'`, &stats.RunsRunning},
		{`SELECT COUNT(1) FROM agent_runs WHERE status = 'completed'`, &stats.RunsCompleted},
		{`SELECT COUNT(1) FROM agent_runs WHERE status = 'error'`, &stats.RunsFailed},
		{`SELECT COUNT(1) FROM posts`, &stats.Posts},
		{`SELECT COUNT(1) FROM post_feedback`, &stats.Feedback},
		{`SELECT COUNT(1) FROM post_comments`, &stats.Comments},
		{`SELECT COUNT(1) FROM agent_memory`, &stats.Memories},
	}
	for _, q := range queries {
		if err := database.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return Stats{}, err
		}
	}
	return stats, nil
}
