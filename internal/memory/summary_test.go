package memory

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSummarizeAveragesNumericDwell(t *testing.T) {
	got := Summarize(Input{
		Feedback: []FeedbackEvent{
			{PostID: "p1", Signal: "dwell", Meta: map[string]any{"dwell_ms": float64(1000)}},
			{PostID: "p1", Signal: "dwell", Meta: map[string]any{"dwell_ms": float64(2001)}},
			{PostID: "p1", Signal: "dwell", Meta: map[string]any{"dwell_ms": "3000"}},
			{PostID: "p2", Signal: "like", Meta: nil},
		},
	}, fixedNow)

	require.NotNil(t, got.AvgDwellMs)
	assert.Equal(t, int64(1501), *got.AvgDwellMs, "round(3001/2) rounds half up")
	assert.Equal(t, map[string]int{"dwell": 3, "like": 1}, got.SignalCounts)
}

func TestSummarizeNullDwellWithoutNumericValues(t *testing.T) {
	got := Summarize(Input{
		Feedback: []FeedbackEvent{
			{Signal: "like", Meta: map[string]any{}},
			{Signal: "dwell", Meta: map[string]any{"dwell_ms": nil}},
		},
	}, fixedNow)
	assert.Nil(t, got.AvgDwellMs)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"avg_dwell_ms":null`)
}

func TestSummarizeTruncatesTitlesAndComments(t *testing.T) {
	var posts []PostRef
	var comments []CommentRef
	for i := 0; i < 20; i++ {
		posts = append(posts, PostRef{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("title-%d", i)})
		comments = append(comments, CommentRef{PostID: "p0", Body: fmt.Sprintf("comment-%d", i)})
	}

	got := Summarize(Input{Posts: posts, Comments: comments}, fixedNow)

	assert.Equal(t, 20, got.PostsAnalyzed)
	require.Len(t, got.RecentTitles, 10)
	require.Len(t, got.CommentSnippets, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("title-%d", i), got.RecentTitles[i])
		assert.Equal(t, fmt.Sprintf("comment-%d", i), got.CommentSnippets[i])
	}
}

func TestSummarizeEmptyInputNeverFails(t *testing.T) {
	got := Summarize(Input{}, fixedNow)

	assert.Equal(t, map[string]any{}, got.Previous)
	assert.Equal(t, 0, got.PostsAnalyzed)
	assert.Empty(t, got.RecentTitles)
	assert.NotNil(t, got.RecentTitles)
	assert.Empty(t, got.SignalCounts)
	assert.Equal(t, "2026-03-01T12:00:00Z", got.UpdatedAt)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"recent_titles":[]`)
	assert.Contains(t, string(b), `"comment_snippets":[]`)
}

func TestSummarizeNestsPreviousUnchanged(t *testing.T) {
	prev := map[string]any{
		"posts_analyzed": float64(3),
		"custom":         "kept",
		"previous":       map[string]any{"posts_analyzed": float64(1)},
	}
	got := Summarize(Input{Previous: prev}, fixedNow)
	assert.Equal(t, prev, got.Previous)
}

func TestSummarizeBoundsHistoryDepth(t *testing.T) {
	chain := map[string]any{}
	for i := 0; i < MaxHistoryDepth+5; i++ {
		chain = Summarize(Input{Previous: chain}, fixedNow).AsMap()
	}

	depth := 0
	node := chain
	for {
		prev, ok := node["previous"].(map[string]any)
		if !ok || len(prev) == 0 {
			break
		}
		depth++
		node = prev
	}
	assert.LessOrEqual(t, depth, MaxHistoryDepth)
}

func TestDecodeToleratesGarbage(t *testing.T) {
	assert.Equal(t, map[string]any{}, Decode([]byte("not json")))
	assert.Equal(t, map[string]any{}, Decode([]byte("[1,2]")))
	assert.Equal(t, map[string]any{"a": "b"}, Decode([]byte(`{"a":"b"}`)))
}
