package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"para/internal/models"
)

type ExportOptions struct {
	AgentID string
	Since   *time.Time
}

type JSONExport struct {
	ExportedAt string            `json:"exported_at"`
	Agents     []models.Agent    `json:"agents"`
	Runs       []models.Run      `json:"runs"`
	Posts      []models.Post     `json:"posts"`
	Feedback   []models.Feedback `json:"feedback"`
	Comments   []models.Comment  `json:"comments"`
	Memory     []models.Memory   `json:"memory"`
}

// ExportJSON dumps one agent (or all agents) with runs, posts, engagement and
// memory. Since filters runs and posts by creation time.
func ExportJSON(ctx context.Context, database *sql.DB, opts ExportOptions) (*JSONExport, error) {
	agents, err := ListAgents(ctx, database)
	if err != nil {
		return nil, err
	}
	if opts.AgentID != "" {
		filtered := agents[:0]
		for _, a := range agents {
			if a.ID == opts.AgentID {
				filtered = append(filtered, a)
			}
		}
		agents = filtered
		if len(agents) == 0 {
			return nil, sql.ErrNoRows
		}
	}

	since := ""
	if opts.Since != nil {
		since = formatTime(*opts.Since)
	}

	out := &JSONExport{
		ExportedAt: now(),
		Agents:     agents,
		Runs:       make([]models.Run, 0),
		Posts:      make([]models.Post, 0),
		Memory:     make([]models.Memory, 0),
	}
	postIDs := make([]string, 0)
	for _, a := range agents {
		runs, err := exportRuns(ctx, database, a.ID, since)
		if err != nil {
			return nil, err
		}
		out.Runs = append(out.Runs, runs...)

		posts, err := exportPosts(ctx, database, a.ID, since)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			postIDs = append(postIDs, p.ID)
		}
		out.Posts = append(out.Posts, posts...)

		m, err := GetMemory(ctx, database, a.ID)
		switch {
		case err == nil:
			out.Memory = append(out.Memory, *m)
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
	}

	if out.Feedback, err = FeedbackForPosts(ctx, database, postIDs); err != nil {
		return nil, err
	}
	if out.Comments, err = RecentComments(ctx, database, postIDs, -1); err != nil {
		return nil, err
	}
	return out, nil
}

func exportRuns(ctx context.Context, database *sql.DB, agentID, since string) ([]models.Run, error) {
	rows, err := database.QueryContext(ctx, `
SELECT `+runColumns+`
FROM agent_runs
WHERE agent_id = ? AND created_at >= ?
ORDER BY created_at ASC, rowid ASC`, agentID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func exportPosts(ctx context.Context, database *sql.DB, agentID, since string) ([]models.Post, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, agent_id, title, payload, COALESCE(published_at, ''), created_at
FROM posts
WHERE agent_id = ? AND created_at >= ?
ORDER BY created_at ASC, rowid ASC`, agentID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarshalIndent renders the export the way the CLI writes it to disk.
func (e *JSONExport) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
