package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"para/internal/pipeline"
	"para/internal/ratelimit"
)

const (
	defaultRunLimit  = 60
	defaultRunWindow = time.Hour
)

// Runner executes one agent run. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Options struct {
	Version string
	Runner  Runner
	// ConfigErr, when set, makes every run request fail with 500 before the
	// body is read.
	ConfigErr error
	Logger    *zap.Logger
	// TokenHash enables bearer auth on /api/v1 and /mcp when non-empty.
	TokenHash string
	Limiter   *ratelimit.Limiter
	RunLimit  int
	RunWindow time.Duration
	AssetDir  string
}

func NewRouter(database *sql.DB, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter()
	}
	if opts.RunLimit == 0 {
		opts.RunLimit = defaultRunLimit
	}
	if opts.RunWindow <= 0 {
		opts.RunWindow = defaultRunWindow
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w)
	})

	r.Get("/api/v1/status", statusHandler(database, opts.Version))

	r.Group(func(r chi.Router) {
		r.Use(tokenAuth(opts.TokenHash))

		r.With(runRateLimit(opts.Limiter, opts.RunLimit, opts.RunWindow)).
			Handle("/api/v1/run-agent", runAgentHandler(opts.Runner, opts.ConfigErr, opts.Logger))

		r.Get("/api/v1/agents", listAgentsHandler(database))
		r.Post("/api/v1/agents", createAgentHandler(database))
		r.Get("/api/v1/agents/{id}", getAgentHandler(database))
		r.Get("/api/v1/agents/{id}/memory", agentMemoryHandler(database))

		r.Get("/api/v1/posts", feedHandler(database))
		r.Get("/api/v1/posts/{id}", getPostHandler(database))
		r.Post("/api/v1/posts/{id}/feedback", postFeedbackHandler(database))
		r.Post("/api/v1/posts/{id}/comments", postCommentsHandler(database))
		r.Post("/api/v1/posts/{id}/simulate", simulateHandler(database))

		r.Get("/api/v1/runs", listRunsHandler(database))
		r.Get("/api/v1/runs/{id}", getRunHandler(database))

		r.Get("/api/v1/stats", statsHandler(database))

		r.Get("/api/v1/admin/export", exportHandler(database))
		r.Get("/api/v1/admin/webhooks", listWebhooksHandler(database))
		r.Post("/api/v1/admin/webhooks", createWebhookHandler(database))
		r.Delete("/api/v1/admin/webhooks/{id}", deleteWebhookHandler(database))
	})

	r.Handle("/mcp", mcpHandler(database, opts))

	if opts.AssetDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(opts.AssetDir))))
	}
	return r
}

func statusHandler(database *sql.DB, version string) http.HandlerFunc {
	type statusResponse struct {
		Status    string `json:"status"`
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:    "ok",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func queryLimit(r *http.Request, fallback, max int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}

func parseSince(raw string) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return time.Now().UTC().Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidSince
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
