package models

import "encoding/json"

type Post struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agent_id"`
	Title       string          `json:"title"`
	Payload     json.RawMessage `json:"payload"`
	Kind        PayloadKind     `json:"kind"`
	PublishedAt string          `json:"published_at"`
	CreatedAt   string          `json:"created_at"`
}

type Feedback struct {
	ID        string         `json:"id"`
	PostID    string         `json:"post_id"`
	Signal    string         `json:"signal"`
	Meta      map[string]any `json:"meta"`
	CreatedAt string         `json:"created_at"`
}

type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// Engagement is the per-post rollup shown next to a post in the feed.
type Engagement struct {
	Likes        int  `json:"likes"`
	Comments     int  `json:"comments"`
	Saves        int  `json:"saves"`
	Follows      int  `json:"follows"`
	CommentCount int  `json:"comment_count"`
	AvgDwellMs   *int `json:"avg_dwell_ms"`
}

type FeedItem struct {
	Post
	ChannelName string     `json:"channel_name"`
	Engagement  Engagement `json:"engagement"`
}

type Webhook struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	Secret    string   `json:"secret,omitempty"`
	CreatedAt string   `json:"created_at"`
	Active    bool     `json:"active"`
}
