package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"para/internal/db"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

func listRunsHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(r, defaultRunsLimit, maxRunsLimit)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))
		runs, err := db.ListRuns(r.Context(), database, agentID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func getRunHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := db.GetRun(r.Context(), database, chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}
