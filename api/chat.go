package api

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
)

// answerer runs the retrieval pipeline for one question. *rag.Engine
// satisfies it.
type answerer interface {
	Ready(ctx context.Context) error
	Answer(ctx context.Context, q rag.Question) iter.Seq[rag.Event]
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type chatHandler struct {
	engine            answerer
	maxQuestionLength int
	trustProxy        bool
	logger            log.Logger
}

// ask handles POST /api/chat: validate, then stream the answer as SSE.
func (h *chatHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_session_id",
			"session_id must be a valid UUID", h.logger)
		return
	}

	question := sanitizeQuestion(req.Question)
	if question == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_question",
			"question must not be empty", h.logger)
		return
	}
	// Characters, not bytes: a non-ASCII question must not hit the bound
	// early.
	if utf8.RuneCountInString(question) > h.maxQuestionLength {
		writeError(w, http.StatusUnprocessableEntity, "invalid_question",
			fmt.Sprintf("question must be at most %d characters", h.maxQuestionLength), h.logger)
		return
	}

	if err := h.engine.Ready(r.Context()); err != nil {
		h.logger.Warn("answer pipeline not ready", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service_unavailable",
			"the answer service is not ready yet, try again shortly", h.logger)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported",
			"streaming is not supported by this connection", h.logger)
		return
	}

	q := rag.Question{
		SessionID: sessionID.String(),
		Text:      question,
		ClientIP:  clientIP(r, h.trustProxy),
	}

	for ev := range h.engine.Answer(r.Context(), q) {
		if err := sse.writeEvent(ev); err != nil {
			// Client disconnected; the engine observes the canceled
			// request context and stops on its own.
			h.logger.Debug("sse write failed", "session_id", q.SessionID, "error", err)
			return
		}
	}
}

// sanitizeQuestion strips null bytes, other control characters, and angle
// brackets, then trims whitespace. Quotes and punctuation stay intact;
// parameterized SQL makes stripping them unnecessary and doing so would
// mangle legitimate questions.
func sanitizeQuestion(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<' || r == '>':
		case r == '\n' || r == '\t':
			sb.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
