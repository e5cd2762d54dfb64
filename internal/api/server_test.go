package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

func newTestServer(t *testing.T) (*Server, index.Sources) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "C--work-app")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.jsonl"), []byte(
		`{"type":"user","timestamp":"2026-02-11T10:00:00Z","cwd":"C:\\work\\app","message":{"role":"user","content":"deploy the service"}}`+"\n"+
			`{"type":"assistant","timestamp":"2026-02-11T10:00:05Z","message":{"role":"assistant","content":"done"}}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s2.jsonl"), []byte(
		`{"type":"user","timestamp":"2026-02-01T09:00:00Z","message":{"role":"user","content":"write tests"}}`+"\n"), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := index.Sources{Roots: scan.Roots{Structured: []string{root}}, Workers: 2}
	idx := index.New(16, logger)
	_, err := idx.Rebuild(context.Background(), src)
	require.NoError(t, err)
	return NewServer(idx, src, logger), src
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["sessions"])
}

func TestListSessions(t *testing.T) {
	s, src := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/api/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 2)
	first := sessions[0].(map[string]any)
	assert.Equal(t, "cli:C--work-app/s1", first["id"])
	assert.Equal(t, "2026-02-11T10:00:05Z", first["lastAt"])
	assert.Equal(t, `C:\work\app`, first["project"])

	roots := body["roots"].(map[string]any)
	assert.Equal(t, []any{src.Roots.Structured[0]}, roots["cli"])
	assert.Equal(t, []any{}, roots["desktop"])
}

func TestListSessions_Filters(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := do(t, s, http.MethodGet, "/api/sessions?q=deploy+service&mode=and")
	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 1)
	hit := sessions[0].(map[string]any)
	assert.Equal(t, "cli:C--work-app/s1", hit["id"])
	assert.Contains(t, hit["snippet"], ">>>")

	_, body = do(t, s, http.MethodGet, "/api/sessions?since=2026-02-01&until=2026-02-01")
	require.Len(t, body["sessions"].([]any), 1)

	_, body = do(t, s, http.MethodGet, "/api/sessions?path=c:/work/app&role=assistant")
	require.Len(t, body["sessions"].([]any), 1)

	_, body = do(t, s, http.MethodGet, "/api/sessions?limit=1")
	assert.EqualValues(t, 1, body["total"])
}

func TestListSessions_BadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{"mode=xor", "since=yesterday", "source=web", "role=robot", "limit=-1"} {
		w, body := do(t, s, http.MethodGet, "/api/sessions?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "INVALID_REQUEST", body["code"], q)
	}
}

func TestGetSession(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/api/sessions/cli:C--work-app/s1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cli:C--work-app/s1", body["id"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	m := msgs[0].(map[string]any)
	assert.Equal(t, "user", m["role"])
	assert.Equal(t, "parsed", m["provenance"])
	assert.EqualValues(t, 1, m["line"])
}

func TestGetSession_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/api/sessions/cli:nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRebuild(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodPost, "/api/rebuild")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["generation"])
	assert.EqualValues(t, 2, body["sessions"])
}

func TestRebuild_ClientGone(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/rebuild", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	snap := s.idx.Current()
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, 2, snap.Len())
}

func TestRebuild_AllRootsFail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := index.Sources{Roots: scan.Roots{Structured: []string{filepath.Join(t.TempDir(), "missing")}}}
	s := NewServer(index.New(16, logger), src, logger)

	w, body := do(t, s, http.MethodPost, "/api/rebuild")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "REBUILD_FAILURE")
	assert.EqualValues(t, 0, body["sessions"])
}
