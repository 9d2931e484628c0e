package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"para/internal/db"
	"para/internal/models"
	"para/internal/simulate"
)

const maxFeedLimit = 200

type feedbackRequest struct {
	Events []db.FeedbackInput `json:"events"`
}

type commentsRequest struct {
	Comments []struct {
		Body string `json:"body"`
	} `json:"comments"`
}

func feedHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(r, db.DefaultFeedLimit, maxFeedLimit)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))
		items, err := db.ListFeed(r.Context(), database, agentID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"posts": items,
			"limit": limit,
		})
	}
}

func getPostHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := loadPost(w, r, database)
		if !ok {
			return
		}
		engagement, err := db.EngagementForPosts(r.Context(), database, []string{post.ID})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load engagement")
			return
		}
		comments, err := db.RecentComments(r.Context(), database, []string{post.ID}, -1)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load comments")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"post":       post,
			"engagement": engagement[post.ID],
			"comments":   comments,
		})
	}
}

func postFeedbackHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		if len(req.Events) == 0 {
			writeError(w, http.StatusBadRequest, "events are required")
			return
		}
		post, ok := loadPost(w, r, database)
		if !ok {
			return
		}
		rows, err := db.InsertFeedback(r.Context(), database, post.ID, req.Events)
		if err != nil {
			if errors.Is(err, db.ErrEmptySignal) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to record feedback")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"feedback": rows})
	}
}

func postCommentsHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		if len(req.Comments) == 0 {
			writeError(w, http.StatusBadRequest, "comments are required")
			return
		}
		post, ok := loadPost(w, r, database)
		if !ok {
			return
		}
		bodies := make([]string, 0, len(req.Comments))
		for _, c := range req.Comments {
			bodies = append(bodies, c.Body)
		}
		rows, err := db.InsertComments(r.Context(), database, post.ID, bodies)
		if err != nil {
			if errors.Is(err, db.ErrEmptyComment) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to record comments")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"comments": rows})
	}
}

func simulateHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := loadPost(w, r, database)
		if !ok {
			return
		}
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		batch, err := simulate.Apply(r.Context(), database, post.ID, rng)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to simulate feedback")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"post_id":  post.ID,
			"feedback": len(batch.Feedback),
			"comments": len(batch.Comments),
		})
	}
}

func loadPost(w http.ResponseWriter, r *http.Request, database *sql.DB) (*models.Post, bool) {
	post, err := db.GetPost(r.Context(), database, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "post not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return nil, false
	}
	return post, true
}
