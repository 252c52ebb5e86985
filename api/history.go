package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/history"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// historyStore is the persistence surface the history endpoints need.
// *history.Store satisfies it.
type historyStore interface {
	History(ctx context.Context, sessionID string, limit int) ([]history.Message, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
}

type historyResponse struct {
	Messages []history.Message `json:"messages"`
	Total    int               `json:"total"`
}

type deleteResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
}

type historyHandler struct {
	store  historyStore
	logger log.Logger
}

// get handles GET /api/chat/history/{session_id}. An optional limit query
// parameter bounds the number of returned messages.
func (h *historyHandler) get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "invalid_limit",
				"limit must be a positive integer", h.logger)
			return
		}
		limit = n
	}

	messages, err := h.store.History(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("load history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable",
			"failed to load chat history", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Messages: messages, Total: len(messages)}, h.logger)
}

// delete handles DELETE /api/chat/history/{session_id}. Deleting an unknown
// session succeeds with a zero count.
func (h *historyHandler) delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	deleted, err := h.store.DeleteSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("delete history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable",
			"failed to delete chat history", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true, DeletedCount: deleted}, h.logger)
}

// sessionID extracts and validates the session_id path parameter. On
// failure it writes the error response and returns ok=false.
func (h *historyHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.PathValue("session_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_session_id",
			"session_id must be a valid UUID", h.logger)
		return "", false
	}
	return id.String(), true
}
