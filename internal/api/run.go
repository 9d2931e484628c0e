package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"para/internal/pipeline"
)

func runAgentHandler(runner Runner, configErr error, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if configErr != nil {
			writeError(w, http.StatusInternalServerError, configErr.Error())
			return
		}
		if runner == nil {
			writeError(w, http.StatusInternalServerError, "run pipeline unavailable")
			return
		}

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}

		result, err := runner.Run(r.Context(), req)
		if err != nil {
			status, message := runErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("agent run failed", zap.String("agent_id", req.AgentID), zap.Error(err))
			}
			writeError(w, status, message)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}

func runErrorStatus(err error) (int, string) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, err.Error()
	}
	switch pe.Kind {
	case pipeline.KindBadRequest:
		return http.StatusBadRequest, pe.Message
	case pipeline.KindNotFound:
		return http.StatusNotFound, pe.Message
	default:
		return http.StatusInternalServerError, pe.Message
	}
}
