// Package memory condenses an agent's recent output and engagement into the
// summary that is fed back into the next planning call.
package memory

import (
	"encoding/json"
	"math"
	"time"
)

const (
	maxRecentTitles    = 10
	maxCommentSnippets = 10

	// MaxHistoryDepth bounds how many previous summaries stay nested inside a
	// new one.
	MaxHistoryDepth = 5
)

type Summary struct {
	Previous        map[string]any `json:"previous"`
	PostsAnalyzed   int            `json:"posts_analyzed"`
	RecentTitles    []string       `json:"recent_titles"`
	SignalCounts    map[string]int `json:"signal_counts"`
	AvgDwellMs      *int64         `json:"avg_dwell_ms"`
	CommentSnippets []string       `json:"comment_snippets"`
	UpdatedAt       string         `json:"updated_at"`
}

type PostRef struct {
	ID    string
	Title string
}

type FeedbackEvent struct {
	PostID string
	Signal string
	Meta   map[string]any
}

type CommentRef struct {
	PostID string
	Body   string
}

// Input holds posts and comments newest-first.
type Input struct {
	Previous map[string]any
	Posts    []PostRef
	Feedback []FeedbackEvent
	Comments []CommentRef
}

func Summarize(in Input, now time.Time) Summary {
	counts := map[string]int{}
	var totalDwell float64
	var dwellCount int
	for _, item := range in.Feedback {
		counts[item.Signal]++
		if dwell, ok := dwellMs(item.Meta); ok {
			totalDwell += dwell
			dwellCount++
		}
	}

	var avg *int64
	if dwellCount > 0 {
		v := roundHalfUp(totalDwell / float64(dwellCount))
		avg = &v
	}

	titles := make([]string, 0, min(len(in.Posts), maxRecentTitles))
	for _, p := range in.Posts {
		if len(titles) == maxRecentTitles {
			break
		}
		titles = append(titles, p.Title)
	}

	snippets := make([]string, 0, min(len(in.Comments), maxCommentSnippets))
	for _, c := range in.Comments {
		if len(snippets) == maxCommentSnippets {
			break
		}
		snippets = append(snippets, c.Body)
	}

	previous := in.Previous
	if previous == nil {
		previous = map[string]any{}
	}

	return Summary{
		Previous:        truncateHistory(previous, MaxHistoryDepth),
		PostsAnalyzed:   len(in.Posts),
		RecentTitles:    titles,
		SignalCounts:    counts,
		AvgDwellMs:      avg,
		CommentSnippets: snippets,
		UpdatedAt:       now.UTC().Format(time.RFC3339Nano),
	}
}

// Decode reads a stored summary as an opaque map. Anything that is not a JSON
// object yields an empty map.
func Decode(raw []byte) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// AsMap converts a summary into the opaque form used as the next run's
// Previous value.
func (s Summary) AsMap() map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	return Decode(b)
}

func dwellMs(meta map[string]any) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta["dwell_ms"].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// roundHalfUp matches JavaScript's Math.round, which rounds .5 toward
// positive infinity.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// truncateHistory copies the chain of nested "previous" maps, cutting it off
// once depth levels have been kept. The maps themselves are not mutated.
func truncateHistory(summary map[string]any, depth int) map[string]any {
	if depth <= 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(summary))
	for k, v := range summary {
		out[k] = v
	}
	if prev, ok := summary["previous"].(map[string]any); ok {
		out["previous"] = truncateHistory(prev, depth-1)
	}
	return out
}
