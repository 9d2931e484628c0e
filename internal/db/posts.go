package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"para/internal/idgen"
	"para/internal/models"
)

const DefaultFeedLimit = 40

func InsertPost(ctx context.Context, database *sql.DB, agentID, title string, payload json.RawMessage, publishedAt time.Time) (*models.Post, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	p := models.Post{
		ID:          idgen.New(),
		AgentID:     agentID,
		Title:       title,
		Payload:     payload,
		Kind:        models.ClassifyPayload(payload).Kind,
		PublishedAt: formatTime(publishedAt),
		CreatedAt:   now(),
	}
	if _, err := database.ExecContext(ctx, `
INSERT INTO posts (id, agent_id, title, payload, published_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.AgentID, p.Title, string(p.Payload), p.PublishedAt, p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecentPosts returns up to limit posts of one agent, newest first.
func RecentPosts(ctx context.Context, database *sql.DB, agentID string, limit int) ([]models.Post, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, agent_id, title, payload, COALESCE(published_at, ''), created_at
FROM posts
WHERE agent_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, agentID, limit)
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

func GetPost(ctx context.Context, database *sql.DB, id string) (*models.Post, error) {
	return scanPost(database.QueryRowContext(ctx, `
SELECT id, agent_id, title, payload, COALESCE(published_at, ''), created_at
FROM posts
WHERE id = ?`, id))
}

// ListFeed returns posts newest first with their channel name and engagement
// rollup. An empty agentID lists every channel.
func ListFeed(ctx context.Context, database *sql.DB, agentID string, limit int) ([]models.FeedItem, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	query := `
SELECT p.id, p.agent_id, p.title, p.payload, COALESCE(p.published_at, ''), p.created_at, a.channel_name
FROM posts p
JOIN agents a ON a.id = p.agent_id`
	args := []any{}
	if agentID != "" {
		query += ` WHERE p.agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items := make([]models.FeedItem, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var (
			item    models.FeedItem
			payload string
		)
		if err := rows.Scan(&item.ID, &item.AgentID, &item.Title, &payload, &item.PublishedAt, &item.CreatedAt, &item.ChannelName); err != nil {
			rows.Close()
			return nil, err
		}
		item.Payload = json.RawMessage(payload)
		item.Kind = models.ClassifyPayload(item.Payload).Kind
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	engagement, err := EngagementForPosts(ctx, database, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Engagement = engagement[items[i].ID]
	}
	return items, nil
}

func scanPost(s rowScanner) (*models.Post, error) {
	var (
		p       models.Post
		payload string
	)
	if err := s.Scan(&p.ID, &p.AgentID, &p.Title, &payload, &p.PublishedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Payload = json.RawMessage(payload)
	p.Kind = models.ClassifyPayload(p.Payload).Kind
	return &p, nil
}
