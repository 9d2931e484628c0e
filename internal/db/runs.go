package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"para/internal/idgen"
	"para/internal/models"
)

// ErrRunNotRunning is returned when a terminal update targets a run that has
// already left the running state.
var ErrRunNotRunning = errors.New("run is not running")

func CreateRun(ctx context.Context, database *sql.DB, agentID, task string) (*models.Run, error) {
	ts := now()
	r := models.Run{
		ID:        idgen.New(),
		AgentID:   agentID,
		Task:      task,
		Status:    models.RunStatusRunning,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if _, err := database.ExecContext(ctx, `
INSERT INTO agent_runs (id, agent_id, task, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgentID, r.Task, r.Status, r.CreatedAt, r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// FinishRun marks a running run completed with its plan and post snapshots.
func FinishRun(ctx context.Context, database *sql.DB, runID string, plan, post json.RawMessage) error {
	res, err := database.ExecContext(ctx, `
UPDATE agent_runs
SET status = ?, plan = ?, post = ?, updated_at = ?
WHERE id = ? AND status = ?`,
		models.RunStatusCompleted, nullableJSON(plan), nullableJSON(post), now(),
		runID, models.RunStatusRunning,
	)
	return checkRunTransition(res, err)
}

// FailRun records message on a running run and marks it errored.
func FailRun(ctx context.Context, database *sql.DB, runID, message string) error {
	res, err := database.ExecContext(ctx, `
UPDATE agent_runs
SET status = ?, error = ?, updated_at = ?
WHERE id = ? AND status = ?`,
		models.RunStatusError, message, now(),
		runID, models.RunStatusRunning,
	)
	return checkRunTransition(res, err)
}

func checkRunTransition(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotRunning
	}
	return nil
}

const runColumns = `id, agent_id, task, status, error, COALESCE(plan, ''), COALESCE(post, ''), created_at, updated_at`

func GetRun(ctx context.Context, database *sql.DB, id string) (*models.Run, error) {
	row := database.QueryRowContext(ctx, `SELECT `+runColumns+` FROM agent_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns runs newest first, optionally for a single agent.
func ListRuns(ctx context.Context, database *sql.DB, agentID string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM agent_runs`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*models.Run, error) {
	var (
		r          models.Run
		errMsg     sql.NullString
		plan, post string
	)
	if err := s.Scan(&r.ID, &r.AgentID, &r.Task, &r.Status, &errMsg, &plan, &post, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		r.Error = &errMsg.String
	}
	if plan != "" {
		r.Plan = json.RawMessage(plan)
	}
	if post != "" {
		r.Post = json.RawMessage(post)
	}
	return &r, nil
}
