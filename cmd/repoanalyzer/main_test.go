package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

// fakeGitHub serves the three REST endpoints for octo/demo; every other
// repository is a 404.
type fakeGitHub struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeGitHub) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.URL.Path)
}

func (f *fakeGitHub) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("owner") != "octo" || r.PathValue("repo") != "demo" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		encodeJSON(t, w, map[string]any{
			"name":             "demo",
			"full_name":        "octo/demo",
			"description":      "A demo repository",
			"language":         "TypeScript",
			"stargazers_count": 3,
			"default_branch":   "main",
			"topics":           []string{},
			"owner":            map[string]any{"login": "octo"},
		})
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/branches/{branch}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		encodeJSON(t, w, map[string]any{
			"name":   r.PathValue("branch"),
			"commit": map[string]any{"sha": "abc123"},
		})
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{sha}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		encodeJSON(t, w, model.GitHubTreeResponse{
			SHA: r.PathValue("sha"),
			Tree: []model.TreeEntry{
				{Path: "README.md", Type: "blob", SHA: "1", Size: model.SizeOf(120)},
				{Path: "src", Type: "tree", SHA: "2"},
				{Path: "src/index.ts", Type: "blob", SHA: "3", Size: model.SizeOf(80)},
				{Path: "src/lib", Type: "tree", SHA: "4"},
				{Path: "src/lib/util.ts", Type: "blob", SHA: "5", Size: model.SizeOf(40)},
			},
		})
	})

	return mux
}

func encodeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("Failed to encode response: %v", err)
	}
}

// setupEnv points the configuration at a fake GitHub API
func setupEnv(t *testing.T) *fakeGitHub {
	t.Helper()

	fake := &fakeGitHub{}
	gh := httptest.NewServer(fake.handler(t))
	t.Cleanup(gh.Close)

	for _, key := range []string{"GITHUB_TOKEN", "GITHUB_APP_ID", "GITHUB_APP_KEY", "GITHUB_INSTALL_ID", "TOKEN_MODEL", "MAX_WORKERS"} {
		t.Setenv(key, "")
	}
	t.Setenv("GITHUB_BASE_URL", gh.URL)
	t.Setenv("API_RATE_LIMIT_THRESHOLD", "1000")
	t.Setenv("RETRY_BACKOFF_MS_BASE", "1")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "0")

	return fake
}

// newTestServer creates a server instance for testing
func newTestServer(t *testing.T) (*Server, *fakeGitHub) {
	fake := setupEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	server, err := NewServer(cfg, metrics.NewForTesting())
	require.NoError(t, err)
	t.Cleanup(server.sessions.Close)

	return server, fake
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createSession starts a session and waits for it to leave the loading state
func createSession(t *testing.T, s *Server, repo string) (string, string) {
	t.Helper()

	w := doRequest(t, s.router, http.MethodPost, "/api/sessions", `{"repo":"`+repo+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	body := decodeBody(t, w)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "loading", body["state"])

	var state string
	require.Eventually(t, func() bool {
		w := doRequest(t, s.router, http.MethodGet, "/api/sessions/"+id, "")
		if w.Code != http.StatusOK {
			return false
		}
		state, _ = decodeBody(t, w)["state"].(string)
		return state == "ready" || state == "failed"
	}, 2*time.Second, 10*time.Millisecond)

	return id, state
}

func TestNewServer(t *testing.T) {
	server, _ := newTestServer(t)
	assert.NotNil(t, server)
	assert.NotNil(t, server.config)
	assert.NotNil(t, server.metrics)
	assert.NotNil(t, server.githubClient)
	assert.NotNil(t, server.sessions)
	assert.NotNil(t, server.workerPool)
	assert.NotNil(t, server.router)
	assert.NotNil(t, server.httpServer)
	assert.Equal(t, "127.0.0.1:0", server.httpServer.Addr)
}

func TestHandleRoot(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectedBody   map[string]any
	}{
		{
			name:           "GET request",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedBody: map[string]any{
				"service": "repoanalyzer",
				"status":  "running",
				"version": "1.0.0",
			},
		},
		{
			name:           "POST request (not allowed)",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "PUT request (not allowed)",
			method:         http.MethodPut,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server.router, tt.method, "/", "")
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedBody != nil {
				assert.Equal(t, tt.expectedBody, decodeBody(t, w))
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(t, server.router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decodeBody(t, w)["status"])

	require.NoError(t, server.workerPool.Start(context.Background()))
	defer server.workerPool.Stop()

	w = doRequest(t, server.router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "repoanalyzer", body["service"])
}

func TestCreateSessionValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "invalid json", body: `{`, want: "Invalid request body"},
		{name: "missing repo", body: `{}`, want: "repo is required"},
		{name: "invalid repo", body: `{"repo":"not-a-repo"}`, want: "Invalid repository"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server.router, http.MethodPost, "/api/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeBody(t, w)["error"], tt.want)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	server, fake := newTestServer(t)

	id, state := createSession(t, server, "https://github.com/octo/demo")
	require.Equal(t, "ready", state)
	assert.Equal(t, []string{
		"/repos/octo/demo",
		"/repos/octo/demo/branches/main",
		"/repos/octo/demo/git/trees/abc123",
	}, fake.Calls())

	// Snapshot carries the result
	w := doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	snapshot := body["snapshot"].(map[string]any)
	result := snapshot["result"].(map[string]any)
	assert.Equal(t, []any{"TypeScript", "Markdown"}, result["tech_stack"])
	assert.Equal(t, "abc123", result["commit_sha"])

	// Tree view
	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/tree", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "└── 📁 src\n")
	assert.Contains(t, w.Body.String(), "README.md")

	// Filtered list follows the view state
	w = doRequest(t, server.router, http.MethodPatch, "/api/sessions/"+id+"/view", `{"filter":"files","search":"S"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "files", decodeBody(t, w)["filter"])

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/list", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "src/index.ts\nsrc/lib/util.ts", w.Body.String())

	// Export with copy feedback
	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/markdown?copy=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "# demo Repository Structure\n"))

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id, "")
	view := decodeBody(t, w)["view"].(map[string]any)
	assert.Equal(t, "markdown", view["copied"])

	// JSON export
	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/json", "")
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "demo", doc["repository"]["name"])

	// Delete
	w = doRequest(t, server.router, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateViewValidation(t *testing.T) {
	server, _ := newTestServer(t)
	id, _ := createSession(t, server, "octo/demo")

	w := doRequest(t, server.router, http.MethodPatch, "/api/sessions/"+id+"/view", `{"filter":"everything"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "unknown filter mode")

	for _, path := range []string{"README.md", "nope"} {
		w = doRequest(t, server.router, http.MethodPatch, "/api/sessions/"+id+"/view", `{"toggle":"`+path+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "is not a directory")
	}

	w = doRequest(t, server.router, http.MethodPatch, "/api/sessions/"+id+"/view", `{"toggle":"src"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"src"}, decodeBody(t, w)["expanded"])

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/outline", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lib")
	assert.NotContains(t, w.Body.String(), "util.ts")
}

func TestRenderErrors(t *testing.T) {
	server, fake := newTestServer(t)

	w := doRequest(t, server.router, http.MethodGet, "/api/sessions/unknown/render/tree", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	id, state := createSession(t, server, "octo/missing")
	require.Equal(t, "failed", state)

	// Metadata failure stops the sequence
	assert.Equal(t, []string{"/repos/octo/missing"}, fake.Calls())

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id, "")
	snapshot := decodeBody(t, w)["snapshot"].(map[string]any)
	assert.Equal(t, "repository not found", snapshot["error"])
	assert.Equal(t, "not_found", snapshot["error_kind"])
	assert.Nil(t, snapshot["result"])

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/tree", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "session is failed", decodeBody(t, w)["error"])

	w = doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id+"/render/pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetry(t *testing.T) {
	server, fake := newTestServer(t)

	id, state := createSession(t, server, "octo/missing")
	require.Equal(t, "failed", state)

	w := doRequest(t, server.router, http.MethodPost, "/api/sessions/"+id+"/retry", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		w := doRequest(t, server.router, http.MethodGet, "/api/sessions/"+id, "")
		snapshot := decodeBody(t, w)["snapshot"].(map[string]any)
		return snapshot["state"] == "failed" && snapshot["generation"] == float64(2)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"/repos/octo/missing", "/repos/octo/missing"}, fake.Calls())

	w = doRequest(t, server.router, http.MethodPost, "/api/sessions/unknown/retry", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream(t *testing.T) {
	server, _ := newTestServer(t)

	ts := httptest.NewServer(server.router)
	defer ts.Close()

	id, state := createSession(t, server, "octo/demo")
	require.Equal(t, "ready", state)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "ready", string(msg.State))
	require.NotNil(t, msg.Summary)
	assert.Equal(t, 3, msg.Summary.Files)
	assert.Equal(t, 2, msg.Summary.Folders)

	// A retry streams loading and then ready
	w := doRequest(t, server.router, http.MethodPost, "/api/sessions/"+id+"/retry", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	for msg.Generation != 2 || msg.State != "ready" {
		require.NoError(t, conn.ReadJSON(&msg))
	}
	assert.Equal(t, "octo", msg.Owner)

	// Removing the session closes the stream
	server.sessions.Remove(id)
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(t, server.router, http.MethodPost, "/api/batch", `{"repos":["octo/demo"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, server.workerPool.Start(context.Background()))
	defer server.workerPool.Stop()

	w = doRequest(t, server.router, http.MethodPost, "/api/batch", `{"repos":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, server.router, http.MethodPost, "/api/batch", `{"repos":["octo/demo","octo/missing"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "ready", resp.Results[0]["state"])
	assert.Equal(t, float64(3), resp.Results[0]["files"])
	assert.Equal(t, "Web Application", resp.Results[0]["project_type"])
	assert.Equal(t, "failed", resp.Results[1]["state"])
	assert.Equal(t, "repository not found", resp.Results[1]["error"])
}

func TestRunAnalyze(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	err := runAnalyze(context.Background(), &stdout, &stderr, "octo/demo", analyzeOptions{
		format: "text",
		filter: "all",
	})
	require.NoError(t, err)

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "DEMO REPOSITORY STRUCTURE\n"))
	assert.Contains(t, out, "TECH STACK: TypeScript, Markdown\n")
	assert.Contains(t, out, "FILES: 3\nFOLDERS: 2\n")
	assert.Empty(t, stderr.String())
}

func TestRunAnalyzeErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		ref  string
		opts analyzeOptions
		want string
	}{
		{name: "unknown format", ref: "octo/demo", opts: analyzeOptions{format: "pdf"}, want: "unknown format"},
		{name: "unknown filter", ref: "octo/demo", opts: analyzeOptions{format: "list", filter: "x"}, want: "unknown filter mode"},
		{name: "bad reference", ref: "demo", opts: analyzeOptions{format: "tree"}, want: "expected owner/repo"},
		{name: "missing repository", ref: "octo/missing", opts: analyzeOptions{format: "tree"}, want: "repository not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := runAnalyze(context.Background(), &stdout, &stderr, tt.ref, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunAnalyzeTokenModel(t *testing.T) {
	setupEnv(t)
	t.Setenv("TOKEN_MODEL", "no-such-model")

	var stdout, stderr bytes.Buffer
	err := runAnalyze(context.Background(), &stdout, &stderr, "octo/demo", analyzeOptions{
		format: "prompt",
		tokens: true,
	})
	assert.Error(t, err)
	assert.Empty(t, stdout.String())
}

func TestRunBatch(t *testing.T) {
	setupEnv(t)

	var stdout bytes.Buffer
	err := runBatch(context.Background(), &stdout, []string{"octo/demo", "octo/missing"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 analyses failed")

	out := stdout.String()
	assert.Contains(t, out, "octo/demo")
	assert.Contains(t, out, "TypeScript, Markdown")
	assert.Contains(t, out, "repository not found")

	stdout.Reset()
	require.NoError(t, runBatch(context.Background(), &stdout, []string{"octo/demo"}, true))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ready", results[0]["state"])
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "analyze", "batch"}, names)

	root.SetArgs([]string{"analyze"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.Error(t, root.Execute())
}
