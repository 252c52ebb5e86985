package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newHealthServer(t *testing.T, checks map[string]Pinger) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Engine:       &fakeEngine{},
		History:      &fakeHistoryStore{},
		HealthChecks: checks,
		IsDev:        true,
	})
	require.NoError(t, err)
	return srv.Handler()
}

func getHealth(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthAllConnected(t *testing.T) {
	countCalls := 0
	handler := newHealthServer(t, map[string]Pinger{
		"database":   &fakePinger{},
		"embeddings": &fakePinger{},
		"vector_store": PingerFunc(func(context.Context) error {
			countCalls++
			return nil
		}),
		"llm": nil,
	})

	w := getHealth(handler)

	require.Equal(t, http.StatusOK, w.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Equal(t, map[string]string{
		"database":     "connected",
		"embeddings":   "connected",
		"vector_store": "connected",
		"llm":          "configured",
	}, resp.Services)
	assert.Equal(t, 1, countCalls)
}

func TestHealthDependencyDown(t *testing.T) {
	handler := newHealthServer(t, map[string]Pinger{
		"database":   &fakePinger{err: errors.New("dial tcp: connection refused")},
		"embeddings": &fakePinger{},
	})

	w := getHealth(handler)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Services["database"])
	assert.Equal(t, "connected", resp.Services["embeddings"])
}

func TestHealthVectorStoreDown(t *testing.T) {
	handler := newHealthServer(t, map[string]Pinger{
		"database": &fakePinger{},
		"vector_store": PingerFunc(func(context.Context) error {
			return errors.New("relation does not exist")
		}),
	})

	w := getHealth(handler)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Services["vector_store"])
}

func TestHealthNoChecks(t *testing.T) {
	handler := newHealthServer(t, nil)

	w := getHealth(handler)

	require.Equal(t, http.StatusOK, w.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Services)
}
