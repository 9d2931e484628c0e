package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"para/internal/db"
)

type createAgentRequest struct {
	ChannelName string `json:"channel_name"`
	Mission     string `json:"mission"`
}

func listAgentsHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agents, err := db.ListAgents(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list agents")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
	}
}

func createAgentHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		agent, err := db.CreateAgent(r.Context(), database, req.ChannelName, req.Mission)
		if err != nil {
			if errors.Is(err, db.ErrInvalidAgent) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to create agent")
			return
		}
		writeJSON(w, http.StatusCreated, agent)
	}
}

func getAgentHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, err := db.GetAgent(r.Context(), database, chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "agent not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load agent")
			return
		}
		writeJSON(w, http.StatusOK, agent)
	}
}

func agentMemoryHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := db.GetAgent(r.Context(), database, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "agent not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load agent")
			return
		}
		mem, err := db.GetMemory(r.Context(), database, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "no memory yet")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load memory")
			return
		}
		writeJSON(w, http.StatusOK, mem)
	}
}
