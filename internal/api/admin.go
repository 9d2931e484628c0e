package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"para/internal/db"
)

var errInvalidSince = errors.New("invalid since value")

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

func statsHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetStats(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
	}
}

// exportHandler dumps agents with their runs, posts, engagement and memory.
// Query: agent_id, since (duration like 24h, RFC3339 or YYYY-MM-DD).
func exportHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := db.ExportOptions{
			AgentID: strings.TrimSpace(r.URL.Query().Get("agent_id")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			since, err := parseSince(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			opts.Since = &since
		}
		exported, err := db.ExportJSON(r.Context(), database, opts)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "agent not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to export json")
			return
		}
		writeJSON(w, http.StatusOK, exported)
	}
}

func listWebhooksHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hooks, err := db.ListWebhooks(r.Context(), database, false)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list webhooks")
			return
		}
		for i := range hooks {
			hooks[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"webhooks": hooks})
	}
}

func createWebhookHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		target := strings.TrimSpace(req.URL)
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			writeError(w, http.StatusBadRequest, "url must be an absolute http(s) url")
			return
		}
		hook, err := db.CreateWebhook(r.Context(), database, target, req.Events, strings.TrimSpace(req.Secret))
		if err != nil {
			if errors.Is(err, db.ErrNoWebhookEvents) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to create webhook")
			return
		}
		writeJSON(w, http.StatusCreated, hook)
	}
}

func deleteWebhookHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.DeleteWebhook(r.Context(), database, chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "webhook not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to delete webhook")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
