package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"para/internal/idgen"
	"para/internal/models"
)

const (
	SignalLike    = "like"
	SignalComment = "comment"
	SignalSave    = "save"
	SignalFollow  = "follow"
	SignalDwell   = "dwell"
)

var ErrEmptySignal = errors.New("feedback signal is required")

type FeedbackInput struct {
	Signal string         `json:"signal"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// InsertFeedback appends events for one post in a single transaction.
func InsertFeedback(ctx context.Context, database *sql.DB, postID string, events []FeedbackInput) ([]models.Feedback, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]models.Feedback, 0, len(events))
	for _, e := range events {
		signal := strings.TrimSpace(e.Signal)
		if signal == "" {
			return nil, ErrEmptySignal
		}
		var meta []byte
		if e.Meta != nil {
			if meta, err = json.Marshal(e.Meta); err != nil {
				return nil, err
			}
		}
		f := models.Feedback{
			ID:        idgen.New(),
			PostID:    postID,
			Signal:    signal,
			Meta:      e.Meta,
			CreatedAt: now(),
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO post_feedback (id, post_id, signal, meta, created_at)
VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.PostID, f.Signal, nullableJSON(meta), f.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// FeedbackForPosts returns every feedback event attached to postIDs.
func FeedbackForPosts(ctx context.Context, database *sql.DB, postIDs []string) ([]models.Feedback, error) {
	out := make([]models.Feedback, 0)
	if len(postIDs) == 0 {
		return out, nil
	}
	rows, err := database.QueryContext(ctx, `
SELECT id, post_id, signal, COALESCE(meta, ''), created_at
FROM post_feedback
WHERE post_id IN (`+placeholders(len(postIDs))+`)
ORDER BY created_at ASC, rowid ASC`, stringArgs(postIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f    models.Feedback
			meta string
		)
		if err := rows.Scan(&f.ID, &f.PostID, &f.Signal, &meta, &f.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" {
			_ = json.Unmarshal([]byte(meta), &f.Meta)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var ErrEmptyComment = errors.New("comment body is required")

func InsertComments(ctx context.Context, database *sql.DB, postID string, bodies []string) ([]models.Comment, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]models.Comment, 0, len(bodies))
	for _, body := range bodies {
		if strings.TrimSpace(body) == "" {
			return nil, ErrEmptyComment
		}
		c := models.Comment{ID: idgen.New(), PostID: postID, Body: body, CreatedAt: now()}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_comments (id, post_id, body, created_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.PostID, c.Body, c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentComments returns up to limit comments on postIDs, newest first.
func RecentComments(ctx context.Context, database *sql.DB, postIDs []string, limit int) ([]models.Comment, error) {
	out := make([]models.Comment, 0)
	if len(postIDs) == 0 {
		return out, nil
	}
	args := append(stringArgs(postIDs), limit)
	rows, err := database.QueryContext(ctx, `
SELECT id, post_id, body, created_at
FROM post_comments
WHERE post_id IN (`+placeholders(len(postIDs))+`)
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func commentCounts(ctx context.Context, database *sql.DB, postIDs []string) (map[string]int, error) {
	out := map[string]int{}
	if len(postIDs) == 0 {
		return out, nil
	}
	rows, err := database.QueryContext(ctx, `
SELECT post_id, COUNT(1)
FROM post_comments
WHERE post_id IN (`+placeholders(len(postIDs))+`)
GROUP BY post_id`, stringArgs(postIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// EngagementForPosts rolls feedback and comments up per post. Every id in
// postIDs gets an entry, zeroed when there is no activity.
func EngagementForPosts(ctx context.Context, database *sql.DB, postIDs []string) (map[string]models.Engagement, error) {
	feedback, err := FeedbackForPosts(ctx, database, postIDs)
	if err != nil {
		return nil, err
	}
	counts, err := commentCounts(ctx, database, postIDs)
	if err != nil {
		return nil, err
	}

	type dwell struct {
		sum   float64
		count int
	}
	dwells := map[string]*dwell{}
	out := make(map[string]models.Engagement, len(postIDs))
	for _, id := range postIDs {
		out[id] = models.Engagement{CommentCount: counts[id]}
		dwells[id] = &dwell{}
	}
	for _, f := range feedback {
		e, ok := out[f.PostID]
		if !ok {
			continue
		}
		switch f.Signal {
		case SignalLike:
			e.Likes++
		case SignalComment:
			e.Comments++
		case SignalSave:
			e.Saves++
		case SignalFollow:
			e.Follows++
		case SignalDwell:
			if ms, ok := f.Meta["dwell_ms"].(float64); ok {
				dwells[f.PostID].sum += ms
				dwells[f.PostID].count++
			}
		}
		out[f.PostID] = e
	}
	for id, d := range dwells {
		if d.count == 0 {
			continue
		}
		avg := int(math.Floor(d.sum/float64(d.count) + 0.5))
		e := out[id]
		e.AvgDwellMs = &avg
		out[id] = e
	}
	return out, nil
}
