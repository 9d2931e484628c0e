package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"para/internal/models"
)

func TestAgentsLifecycle(t *testing.T) {
	env := setupTestServer(t)

	resp := doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/agents", map[string]any{
		"channel_name": "Soft Static",
		"mission":      "Collect quiet analog textures.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Agent
	decodeJSON(t, resp, &created)
	assert.Equal(t, "Soft Static", created.ChannelName)

	resp = doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/agents", map[string]any{"channel_name": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/agents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Agents []models.Agent `json:"agents"`
	}
	decodeJSON(t, resp, &list)
	require.Len(t, list.Agents, 2)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/agents/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/agents/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAgentMemoryAppearsAfterRun(t *testing.T) {
	env := setupTestServer(t)

	resp := doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/agents/"+env.agent.ID+"/memory", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	runAgent(t, env)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/agents/"+env.agent.ID+"/memory", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mem struct {
		AgentID string         `json:"agent_id"`
		Summary map[string]any `json:"summary"`
	}
	decodeJSON(t, resp, &mem)
	assert.Equal(t, env.agent.ID, mem.AgentID)
	assert.EqualValues(t, 0, mem.Summary["posts_analyzed"])
}

func TestFeedAndFeedback(t *testing.T) {
	env := setupTestServer(t)
	_, postID := runAgent(t, env)

	resp := doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/posts/"+postID+"/feedback", map[string]any{
		"events": []map[string]any{
			{"signal": "like"},
			{"signal": "like"},
			{"signal": "dwell", "meta": map[string]any{"dwell_ms": 1000}},
			{"signal": "dwell", "meta": map[string]any{"dwell_ms": 2001}},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/posts/"+postID+"/comments", map[string]any{
		"comments": []map[string]any{{"body": "The palette is perfect."}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/posts?agent_id="+env.agent.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed struct {
		Posts []models.FeedItem `json:"posts"`
		Limit int               `json:"limit"`
	}
	decodeJSON(t, resp, &feed)
	assert.Equal(t, 40, feed.Limit)
	require.Len(t, feed.Posts, 1)
	item := feed.Posts[0]
	assert.Equal(t, "Noir Circuit", item.ChannelName)
	assert.Equal(t, models.PayloadTypographicThought, item.Kind)
	assert.Equal(t, 2, item.Engagement.Likes)
	assert.Equal(t, 1, item.Engagement.CommentCount)
	require.NotNil(t, item.Engagement.AvgDwellMs)
	assert.Equal(t, 1501, *item.Engagement.AvgDwellMs)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/posts/"+postID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one struct {
		Post       models.Post       `json:"post"`
		Engagement models.Engagement `json:"engagement"`
		Comments   []models.Comment  `json:"comments"`
	}
	decodeJSON(t, resp, &one)
	assert.Equal(t, "Static Bloom", one.Post.Title)
	assert.Equal(t, 2, one.Engagement.Likes)
	require.Len(t, one.Comments, 1)
}

func TestFeedbackValidation(t *testing.T) {
	env := setupTestServer(t)
	_, postID := runAgent(t, env)

	cases := []struct {
		path   string
		body   any
		status int
	}{
		{"/api/v1/posts/" + postID + "/feedback", map[string]any{"events": []any{}}, http.StatusBadRequest},
		{"/api/v1/posts/" + postID + "/feedback", map[string]any{"events": []map[string]any{{"signal": " "}}}, http.StatusBadRequest},
		{"/api/v1/posts/missing/feedback", map[string]any{"events": []map[string]any{{"signal": "like"}}}, http.StatusNotFound},
		{"/api/v1/posts/" + postID + "/comments", map[string]any{"comments": []map[string]any{{"body": ""}}}, http.StatusBadRequest},
		{"/api/v1/posts/" + postID + "/comments", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := doReq(t, env.srv.URL, "", http.MethodPost, tc.path, tc.body)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 0, env.count(t, "post_feedback"))
	assert.Equal(t, 0, env.count(t, "post_comments"))
}

func TestSimulateFeedback(t *testing.T) {
	env := setupTestServer(t)
	_, postID := runAgent(t, env)

	resp := doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/posts/"+postID+"/simulate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		Feedback int `json:"feedback"`
		Comments int `json:"comments"`
	}
	decodeJSON(t, resp, &out)
	assert.GreaterOrEqual(t, out.Feedback, 5)
	assert.Equal(t, out.Feedback, env.count(t, "post_feedback"))
	assert.Equal(t, out.Comments, env.count(t, "post_comments"))

	resp = doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/posts/missing/simulate", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRunsHistory(t *testing.T) {
	env := setupTestServer(t)
	runID, _ := runAgent(t, env)

	resp := doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/runs?agent_id="+env.agent.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Runs []models.Run `json:"runs"`
	}
	decodeJSON(t, resp, &list)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, runID, list.Runs[0].ID)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run models.Run
	decodeJSON(t, resp, &run)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.NotEmpty(t, run.Plan)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/runs?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/runs/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestStatsAndExport(t *testing.T) {
	env := setupTestServer(t)
	runAgent(t, env)

	resp := doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Stats struct {
			Agents        int `json:"agents"`
			Posts         int `json:"posts"`
			RunsCompleted int `json:"runs_completed"`
		} `json:"stats"`
	}
	decodeJSON(t, resp, &stats)
	assert.Equal(t, 1, stats.Stats.Agents)
	assert.Equal(t, 1, stats.Stats.Posts)
	assert.Equal(t, 1, stats.Stats.RunsCompleted)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/admin/export?agent_id="+env.agent.ID+"&since=24h", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exported struct {
		Agents []models.Agent  `json:"agents"`
		Runs   []models.Run    `json:"runs"`
		Posts  []models.Post   `json:"posts"`
		Memory []models.Memory `json:"memory"`
	}
	decodeJSON(t, resp, &exported)
	assert.Len(t, exported.Agents, 1)
	assert.Len(t, exported.Runs, 1)
	assert.Len(t, exported.Posts, 1)
	assert.Len(t, exported.Memory, 1)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/admin/export?since=yesterday", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/admin/export?agent_id=missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestWebhooksCRUD(t *testing.T) {
	env := setupTestServer(t)

	resp := doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/admin/webhooks", map[string]any{
		"url":    "ftp://example.com/hook",
		"events": []string{"run.completed"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/admin/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/admin/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"run.completed", "run.failed"},
		"secret": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var hook models.Webhook
	decodeJSON(t, resp, &hook)
	assert.Equal(t, "s3cret", hook.Secret)

	resp = doReq(t, env.srv.URL, "", http.MethodGet, "/api/v1/admin/webhooks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Webhooks []models.Webhook `json:"webhooks"`
	}
	decodeJSON(t, resp, &list)
	require.Len(t, list.Webhooks, 1)
	assert.Empty(t, list.Webhooks[0].Secret)
	assert.Equal(t, []string{"run.completed", "run.failed"}, list.Webhooks[0].Events)

	resp = doReq(t, env.srv.URL, "", http.MethodDelete, "/api/v1/admin/webhooks/"+hook.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doReq(t, env.srv.URL, "", http.MethodDelete, "/api/v1/admin/webhooks/"+hook.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAssetsServedFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent-x.png"), []byte("png-bytes"), 0o644))
	env := setupTestServer(t, func(o *Options) { o.AssetDir = dir })

	resp := doReq(t, env.srv.URL, "", http.MethodGet, "/assets/agent-x.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
}
