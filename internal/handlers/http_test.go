package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.url+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "grid", body["game"])
}

func TestGetSession(t *testing.T) {
	ts := newTestServer(t)
	a, b := uuid.New(), uuid.New()
	ca, cb := ts.dial(t, a), ts.dial(t, b)

	send(t, ca, realtime.EventJoinMatchmaking, map[string]any{})
	expect(t, ca, realtime.EventMatchmakingJoined)
	send(t, cb, realtime.EventJoinMatchmaking, map[string]any{})
	matched := expect(t, ca, realtime.EventMatched)
	path := "/sessions/" + matched["sessionId"].(string)

	assert.Equal(t, http.StatusUnauthorized, ts.get(t, path, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, ts.get(t, path, ts.token(t, uuid.New())).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/sessions/"+uuid.NewString(), ts.token(t, a)).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.get(t, "/sessions/nope", ts.token(t, a)).StatusCode)

	resp := ts.get(t, path, ts.token(t, b))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "in_lobby", view["status"])
}
