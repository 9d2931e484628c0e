package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"para/internal/models"
)

func mustAgent(t *testing.T, database *sql.DB, name string) *models.Agent {
	t.Helper()
	a, err := CreateAgent(context.Background(), database, name, "mission for "+name)
	require.NoError(t, err)
	return a
}

func TestAgentsCreateListGet(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "agents.db")

	_, err := CreateAgent(ctx, database, "  ", "mission")
	require.ErrorIs(t, err, ErrInvalidAgent)

	first := mustAgent(t, database, "First")
	second := mustAgent(t, database, "Second")

	agents, err := ListAgents(ctx, database)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, second.ID, agents[0].ID, "newest first")

	got, err := GetAgent(ctx, database, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.ChannelName)

	_, err = GetAgent(ctx, database, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRunTerminalTransitionsOnlyFromRunning(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "runs.db")
	agent := mustAgent(t, database, "Runner")

	run, err := CreateRun(ctx, database, agent.ID, "task")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, run.Status)

	require.NoError(t, FinishRun(ctx, database, run.ID, json.RawMessage(`{"intent":"x"}`), json.RawMessage(`{"title":"t"}`)))
	assert.ErrorIs(t, FailRun(ctx, database, run.ID, "late failure"), ErrRunNotRunning)

	got, err := GetRun(ctx, database, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Nil(t, got.Error)
	assert.JSONEq(t, `{"intent":"x"}`, string(got.Plan))

	failed, err := CreateRun(ctx, database, agent.ID, "task 2")
	require.NoError(t, err)
	require.NoError(t, FailRun(ctx, database, failed.ID, "planner exploded"))
	got, err = GetRun(ctx, database, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusError, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "planner exploded", *got.Error)
	assert.Empty(t, got.Plan)

	runs, err := ListRuns(ctx, database, agent.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, failed.ID, runs[0].ID)
}

func TestRecentPostsNewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "posts.db")
	agent := mustAgent(t, database, "Poster")
	other := mustAgent(t, database, "Other")

	for i := 0; i < 25; i++ {
		_, err := InsertPost(ctx, database, agent.ID, "post", json.RawMessage(`{"type":"typographic_thought","quote":"q"}`), time.Now())
		require.NoError(t, err)
	}
	_, err := InsertPost(ctx, database, other.ID, "elsewhere", nil, time.Now())
	require.NoError(t, err)

	posts, err := RecentPosts(ctx, database, agent.ID, 20)
	require.NoError(t, err)
	require.Len(t, posts, 20)
	for i := 1; i < len(posts); i++ {
		assert.GreaterOrEqual(t, posts[i-1].CreatedAt, posts[i].CreatedAt)
	}
	assert.Equal(t, models.PayloadTypographicThought, posts[0].Kind)
}

func TestFeedEngagementRollup(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "feed.db")
	agent := mustAgent(t, database, "Noir")

	quiet, err := InsertPost(ctx, database, agent.ID, "quiet", json.RawMessage(`{}`), time.Now())
	require.NoError(t, err)
	busy, err := InsertPost(ctx, database, agent.ID, "busy", json.RawMessage(`{"image_url":"https://x/y.png"}`), time.Now())
	require.NoError(t, err)

	_, err = InsertFeedback(ctx, database, busy.ID, []FeedbackInput{
		{Signal: "like"}, {Signal: "like"}, {Signal: "save"}, {Signal: "follow"}, {Signal: "comment"},
		{Signal: "dwell", Meta: map[string]any{"dwell_ms": 1000}},
		{Signal: "dwell", Meta: map[string]any{"dwell_ms": 2001}},
		{Signal: "dwell", Meta: map[string]any{"dwell_ms": "n/a"}},
	})
	require.NoError(t, err)
	_, err = InsertComments(ctx, database, busy.ID, []string{"one", "two"})
	require.NoError(t, err)

	feed, err := ListFeed(ctx, database, "", 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, busy.ID, feed[0].ID)
	assert.Equal(t, "Noir", feed[0].ChannelName)
	assert.Equal(t, models.PayloadVisualCard, feed[0].Kind)

	e := feed[0].Engagement
	assert.Equal(t, 2, e.Likes)
	assert.Equal(t, 1, e.Saves)
	assert.Equal(t, 1, e.Follows)
	assert.Equal(t, 1, e.Comments)
	assert.Equal(t, 2, e.CommentCount)
	require.NotNil(t, e.AvgDwellMs)
	assert.Equal(t, 1501, *e.AvgDwellMs)

	assert.Equal(t, quiet.ID, feed[1].ID)
	assert.Nil(t, feed[1].Engagement.AvgDwellMs)
	assert.Zero(t, feed[1].Engagement.Likes)
}

func TestFeedbackValidation(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "feedback.db")
	agent := mustAgent(t, database, "A")
	post, err := InsertPost(ctx, database, agent.ID, "p", nil, time.Now())
	require.NoError(t, err)

	_, err = InsertFeedback(ctx, database, post.ID, []FeedbackInput{{Signal: "like"}, {Signal: " "}})
	require.ErrorIs(t, err, ErrEmptySignal)
	got, err := FeedbackForPosts(ctx, database, []string{post.ID})
	require.NoError(t, err)
	assert.Empty(t, got, "batch is rolled back")

	_, err = InsertComments(ctx, database, post.ID, []string{""})
	require.ErrorIs(t, err, ErrEmptyComment)

	_, err = InsertFeedback(ctx, database, "no-such-post", []FeedbackInput{{Signal: "like"}})
	require.Error(t, err, "foreign key enforced")
}

func TestRecentCommentsAcrossPosts(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "comments.db")
	agent := mustAgent(t, database, "A")
	p1, _ := InsertPost(ctx, database, agent.ID, "p1", nil, time.Now())
	p2, _ := InsertPost(ctx, database, agent.ID, "p2", nil, time.Now())

	for i := 0; i < 15; i++ {
		_, err := InsertComments(ctx, database, p1.ID, []string{"c1"})
		require.NoError(t, err)
		_, err = InsertComments(ctx, database, p2.ID, []string{"c2"})
		require.NoError(t, err)
	}

	got, err := RecentComments(ctx, database, []string{p1.ID, p2.ID}, 20)
	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.Equal(t, "c2", got[0].Body)

	none, err := RecentComments(ctx, database, nil, 20)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryUpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "memory.db")
	agent := mustAgent(t, database, "A")

	_, err := GetMemory(ctx, database, agent.ID)
	require.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, UpsertMemory(ctx, database, agent.ID, json.RawMessage(`{"posts_analyzed":1}`), time.Now()))
	require.NoError(t, UpsertMemory(ctx, database, agent.ID, json.RawMessage(`{"posts_analyzed":2}`), time.Now()))

	m, err := GetMemory(ctx, database, agent.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"posts_analyzed":2}`, string(m.Summary))
}

func TestSeedDefaultAgentOnlyOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "seed.db")

	seeded, err := SeedDefaultAgent(ctx, database)
	require.NoError(t, err)
	require.NotNil(t, seeded)
	assert.Equal(t, "Noir Circuit", seeded.ChannelName)
	assert.Equal(t, "Find the darkest cyberpunk aesthetics.", seeded.Mission)

	again, err := SeedDefaultAgent(ctx, database)
	require.NoError(t, err)
	assert.Nil(t, again)

	n, err := CountAgents(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWebhooksForEvent(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "webhooks.db")

	_, err := CreateWebhook(ctx, database, "https://a.example", []string{" "}, "")
	require.ErrorIs(t, err, ErrNoWebhookEvents)

	done, err := CreateWebhook(ctx, database, "https://a.example", []string{EventRunCompleted, EventRunCompleted}, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{EventRunCompleted}, done.Events)
	_, err = CreateWebhook(ctx, database, "https://b.example", []string{"*"}, "")
	require.NoError(t, err)

	hooks, err := WebhooksForEvent(ctx, database, EventRunFailed)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "https://b.example", hooks[0].URL)

	require.NoError(t, DeleteWebhook(ctx, database, done.ID))
	assert.ErrorIs(t, DeleteWebhook(ctx, database, done.ID), sql.ErrNoRows)
}

func TestStatsAndExport(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "stats.db")
	agent := mustAgent(t, database, "A")
	other := mustAgent(t, database, "B")

	run, err := CreateRun(ctx, database, agent.ID, "t")
	require.NoError(t, err)
	post, err := InsertPost(ctx, database, agent.ID, "p", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, FinishRun(ctx, database, run.ID, json.RawMessage(`{}`), json.RawMessage(`{}`)))
	_, err = InsertFeedback(ctx, database, post.ID, []FeedbackInput{{Signal: "like"}})
	require.NoError(t, err)
	require.NoError(t, UpsertMemory(ctx, database, agent.ID, json.RawMessage(`{}`), time.Now()))
	_, err = CreateRun(ctx, database, other.ID, "t")
	require.NoError(t, err)

	stats, err := GetStats(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, Stats{Agents: 2, Runs: 2, RunsRunning: 1, RunsCompleted: 1, Posts: 1, Feedback: 1, Memories: 1}, stats)

	export, err := ExportJSON(ctx, database, ExportOptions{AgentID: agent.ID})
	require.NoError(t, err)
	require.Len(t, export.Agents, 1)
	assert.Len(t, export.Runs, 1)
	assert.Len(t, export.Posts, 1)
	assert.Len(t, export.Feedback, 1)
	assert.Len(t, export.Memory, 1)
	assert.NotNil(t, export.Comments)

	future := time.Now().Add(time.Hour)
	export, err = ExportJSON(ctx, database, ExportOptions{Since: &future})
	require.NoError(t, err)
	assert.Len(t, export.Agents, 2)
	assert.Empty(t, export.Posts)

	_, err = ExportJSON(ctx, database, ExportOptions{AgentID: "nope"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
