// Package research runs web searches for planner-proposed queries.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"para/internal/models"
)

const (
	DefaultBaseURL = "https://api.tavily.com"

	// MaxQueries bounds how many planner queries are searched per run.
	MaxQueries  = 3
	maxResults  = 5
	searchDepth = "advanced"
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(apiKey, baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries the first MaxQueries entries in order and returns one
// result per query. A failing query is logged and yields empty results.
func (c *Client) Search(ctx context.Context, queries []string) []models.ResearchResult {
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	out := make([]models.ResearchResult, 0, len(queries))
	for _, q := range queries {
		items, err := c.searchOne(ctx, q)
		if err != nil {
			c.logger.Warn("research query failed", zap.String("query", q), zap.Error(err))
			items = []models.ResearchItem{}
		}
		out = append(out, models.ResearchResult{Query: q, Results: items})
	}
	return out
}

func (c *Client) searchOne(ctx context.Context, query string) ([]models.ResearchItem, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: searchDepth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	items := make([]models.ResearchItem, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		items = append(items, models.ResearchItem{Title: r.Title, URL: r.URL, Summary: r.Content})
	}
	return items, nil
}
