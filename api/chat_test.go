package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/history"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
)

const validSession = "123e4567-e89b-12d3-a456-426614174000"

type fakeEngine struct {
	events   []rag.Event
	readyErr error
	question rag.Question
}

func (f *fakeEngine) Ready(context.Context) error { return f.readyErr }

func (f *fakeEngine) Answer(_ context.Context, q rag.Question) iter.Seq[rag.Event] {
	f.question = q
	return func(yield func(rag.Event) bool) {
		for _, ev := range f.events {
			if !yield(ev) {
				return
			}
		}
	}
}

type fakeHistoryStore struct {
	messages  []history.Message
	histErr   error
	deleted   int
	deleteErr error
	sessionID string
	limit     int
}

func (f *fakeHistoryStore) History(_ context.Context, sessionID string, limit int) ([]history.Message, error) {
	f.sessionID = sessionID
	f.limit = limit
	return f.messages, f.histErr
}

func (f *fakeHistoryStore) DeleteSession(_ context.Context, sessionID string) (int, error) {
	f.sessionID = sessionID
	return f.deleted, f.deleteErr
}

func newTestServer(t *testing.T, engine answerer, store historyStore) http.Handler {
	t.Helper()
	if engine == nil {
		engine = &fakeEngine{}
	}
	if store == nil {
		store = &fakeHistoryStore{}
	}
	srv, err := NewServer(ServerConfig{
		Engine:         engine,
		History:        store,
		RateLimitBurst: 1000,
		IsDev:          true,
	})
	require.NoError(t, err)
	return srv.Handler()
}

func postChat(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeSSE(t *testing.T, body string) []rag.Event {
	t.Helper()
	var events []rag.Event
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev rag.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}
	return events
}

func TestChatStreamsAnswer(t *testing.T) {
	engine := &fakeEngine{events: []rag.Event{
		{Type: rag.EventToken, Content: "Hello"},
		{Type: rag.EventToken, Content: " world"},
		{Type: rag.EventDone},
	}}
	handler := newTestServer(t, engine, nil)

	w := postChat(handler, `{"question":"Who is Rushikesh?","session_id":"`+validSession+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	events := decodeSSE(t, w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, rag.Event{Type: rag.EventToken, Content: "Hello"}, events[0])
	assert.Equal(t, rag.Event{Type: rag.EventToken, Content: " world"}, events[1])
	assert.Equal(t, rag.EventDone, events[2].Type)

	assert.Equal(t, validSession, engine.question.SessionID)
	assert.Equal(t, "Who is Rushikesh?", engine.question.Text)
	assert.NotEmpty(t, engine.question.ClientIP)
}

func TestChatErrorEvent(t *testing.T) {
	engine := &fakeEngine{events: []rag.Event{
		{Type: rag.EventError, Content: "Answer generation failed. Please try again."},
	}}
	handler := newTestServer(t, engine, nil)

	w := postChat(handler, `{"question":"hi","session_id":"`+validSession+`"}`)

	// SSE streams always start as 200; failures arrive as error events.
	assert.Equal(t, http.StatusOK, w.Code)
	events := decodeSSE(t, w.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, rag.EventError, events[0].Type)
}

func TestChatNotReady(t *testing.T) {
	engine := &fakeEngine{readyErr: errors.New("retrieval store not ready")}
	handler := newTestServer(t, engine, nil)

	w := postChat(handler, `{"question":"hi","session_id":"`+validSession+`"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Error)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			"invalid json",
			`{"question": `,
			http.StatusUnprocessableEntity,
			"invalid_json",
		},
		{
			"missing session id",
			`{"question":"hi"}`,
			http.StatusUnprocessableEntity,
			"invalid_session_id",
		},
		{
			"malformed session id",
			`{"question":"hi","session_id":"not-a-uuid"}`,
			http.StatusUnprocessableEntity,
			"invalid_session_id",
		},
		{
			"empty question",
			`{"question":"","session_id":"` + validSession + `"}`,
			http.StatusUnprocessableEntity,
			"invalid_question",
		},
		{
			"whitespace question",
			`{"question":"   ","session_id":"` + validSession + `"}`,
			http.StatusUnprocessableEntity,
			"invalid_question",
		},
		{
			"question of only stripped characters",
			`{"question":"<><>","session_id":"` + validSession + `"}`,
			http.StatusUnprocessableEntity,
			"invalid_question",
		},
		{
			"oversized question",
			`{"question":"` + strings.Repeat("a", 2001) + `","session_id":"` + validSession + `"}`,
			http.StatusUnprocessableEntity,
			"invalid_question",
		},
	}

	handler := newTestServer(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(handler, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestChatQuestionLengthCountsRunes(t *testing.T) {
	engine := &fakeEngine{events: []rag.Event{{Type: rag.EventDone}}}
	handler := newTestServer(t, engine, nil)

	// 1500 three-byte runes: 4500 bytes but well within the 2000-char bound.
	question := strings.Repeat("あ", 1500)
	w := postChat(handler, `{"question":"`+question+`","session_id":"`+validSession+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// 2001 runes is over the bound regardless of encoding.
	question = strings.Repeat("あ", 2001)
	w = postChat(handler, `{"question":"`+question+`","session_id":"`+validSession+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSanitizeQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "What projects?", "What projects?"},
		{"trims whitespace", "  hi  ", "hi"},
		{"strips angle brackets", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"strips null bytes", "he\x00llo", "hello"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"keeps quotes", `what is "Go"?`, `what is "Go"?`},
		{"only control chars", "\x00\x01\x02", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeQuestion(tt.in))
		})
	}
}
