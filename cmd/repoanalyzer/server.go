package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sattwyk/repoanalyzer/internal/analyzer"
	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/github"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/model"
	"github.com/sattwyk/repoanalyzer/internal/render"
	"github.com/sattwyk/repoanalyzer/internal/session"
	"github.com/sattwyk/repoanalyzer/internal/tree"
	"github.com/sattwyk/repoanalyzer/internal/worker"
)

const (
	serviceName    = "repoanalyzer"
	serviceVersion = "1.0.0"

	maxBatchSize = 50
)

// Server represents the HTTP server for the repoanalyzer service
type Server struct {
	config       *config.Config
	metrics      *metrics.Metrics
	githubClient *github.Client
	sessions     *session.Registry
	workerPool   *worker.Pool
	router       chi.Router
	upgrader     websocket.Upgrader
	httpServer   *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, m *metrics.Metrics) (*Server, error) {
	// Initialize GitHub client
	ghClient, err := github.NewClient(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	newAnalyzer := func() *analyzer.Analyzer {
		return analyzer.New(ghClient, m)
	}

	server := &Server{
		config:       cfg,
		metrics:      m,
		githubClient: ghClient,
		sessions:     session.NewRegistry(cfg.MaxSessions, cfg.GetSessionTTL(), newAnalyzer, m),
		workerPool:   worker.NewPool(cfg, m, ghClient),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.router = server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:     server.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware, s.metricsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle(s.config.MetricsPath, promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/retry", s.handleRetry)
			r.Patch("/view", s.handleUpdateView)
			r.Get("/render/{format}", s.handleRender)
			r.Get("/ws", s.handleStream)
		})
		r.Post("/batch", s.handleBatch)
	})

	return r
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	// Start worker pool
	if err := s.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Addr = listener.Addr().String()

	log.Printf("Starting %s service on %s", serviceName, s.httpServer.Addr)

	// Start HTTP server in goroutine
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	log.Printf("Shutting down %s service...", serviceName)

	// Stop worker pool
	if err := s.workerPool.Stop(); err != nil {
		log.Printf("Error stopping worker pool: %v", err)
	}

	// Closing sessions ends their websocket streams
	s.sessions.Close()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	log.Printf("%s service stopped", serviceName)
	return nil
}

// handleRoot handles the root endpoint
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"status":  "running",
		"version": serviceVersion,
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !s.workerPool.IsRunning() {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, model.HealthResponse{
		Status:    status,
		Service:   serviceName,
		Timestamp: time.Now(),
		Version:   serviceVersion,
	})
}

type createSessionRequest struct {
	Repo string `json:"repo"`
}

type sessionResponse struct {
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	Repo      string            `json:"repo"`
	CreatedAt time.Time         `json:"created_at"`
	State     analyzer.State    `json:"state"`
	View      *session.State    `json:"view,omitempty"`
	Snapshot  *analyzer.Snapshot `json:"snapshot,omitempty"`
}

// handleCreateSession registers a session and starts its analysis
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.Repo == "" {
		writeError(w, http.StatusBadRequest, "repo is required")
		return
	}

	owner, repo, err := github.ParseRepositoryRef(req.Repo)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid repository: %v", err))
		return
	}

	sess := s.sessions.Create(owner, repo)
	if _, err := sess.Analyzer.Start(owner, repo); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Created session %s for %s/%s", sess.ID, owner, repo)

	writeJSON(w, http.StatusAccepted, sessionResponse{
		ID:        sess.ID,
		Owner:     owner,
		Repo:      repo,
		CreatedAt: sess.CreatedAt,
		State:     analyzer.StateLoading,
	})
}

// handleGetSession returns the view state and the latest snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	snap := sess.Analyzer.Snapshot()
	view := sess.State()
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:        sess.ID,
		Owner:     sess.Owner,
		Repo:      sess.Repo,
		CreatedAt: sess.CreatedAt,
		State:     snap.State,
		View:      &view,
		Snapshot:  &snap,
	})
}

// handleDeleteSession drops a session
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetry re-runs the session's analysis from the metadata lookup
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	if _, err := sess.Analyzer.StartRetry(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, sessionResponse{
		ID:        sess.ID,
		Owner:     sess.Owner,
		Repo:      sess.Repo,
		CreatedAt: sess.CreatedAt,
		State:     analyzer.StateLoading,
	})
}

// handleUpdateView applies a partial view state change
func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var update session.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	// Toggles are checked against the tree once there is one
	if update.Toggle != nil {
		if snap := sess.Analyzer.Snapshot(); snap.State == analyzer.StateReady {
			if node := tree.Find(snap.Result.Forest, *update.Toggle); node == nil || !node.IsDir() {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("%q is not a directory", *update.Toggle))
				return
			}
		}
	}

	state, err := sess.Update(update.Apply)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleRender renders one view of a ready session. ?copy=1 records the
// format as copied; ?tokens=1 adds an X-Token-Estimate header.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := sess.Analyzer.Snapshot()
	if snap.State != analyzer.StateReady {
		writeError(w, http.StatusConflict, fmt.Sprintf("session is %s", snap.State))
		return
	}

	view := sess.State()
	data, err := render.Render(format, render.NewReport(sess.Owner, sess.Repo, snap.Result), view.View())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.RecordExport(string(format))

	if r.URL.Query().Get("copy") == "1" {
		_, _ = sess.Update(func(st session.State) (session.State, error) {
			return st.WithCopied(format), nil
		})
	}

	if r.URL.Query().Get("tokens") == "1" {
		if n, err := render.CountTokens(s.config.TokenModel, string(data)); err != nil {
			log.Printf("Token estimate failed: %v", err)
		} else {
			w.Header().Set("X-Token-Estimate", strconv.Itoa(n))
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

type batchRequest struct {
	Repos []string `json:"repos"`
}

type batchResponse struct {
	Results  []worker.Result `json:"results"`
	Duration string          `json:"duration"`
}

// handleBatch analyzes several repositories on the worker pool
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if len(req.Repos) == 0 {
		writeError(w, http.StatusBadRequest, "repos is required")
		return
	}

	if len(req.Repos) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d repos per batch", maxBatchSize))
		return
	}

	startTime := time.Now()
	results, err := s.workerPool.AnalyzeBatch(r.Context(), req.Repos)
	if err != nil {
		log.Printf("Batch analysis failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Results:  results,
		Duration: time.Since(startTime).String(),
	})
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// checkOrigin accepts any origin in development and same-host origins otherwise
func (s *Server) checkOrigin(r *http.Request) bool {
	if !s.config.IsProduction() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := parseOrigin(origin)
	if err != nil {
		return false
	}
	return u == r.Host
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		// Call next handler
		next.ServeHTTP(wrapper, r)

		// Log request
		duration := time.Since(start)
		log.Printf("%s %s %d %v %s",
			r.Method, r.URL.Path, wrapper.statusCode, duration, r.RemoteAddr)
	})
}

// metricsMiddleware records metrics for HTTP requests, labelled by route pattern
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		// Call next handler
		next.ServeHTTP(wrapper, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		// Record metrics
		duration := time.Since(start).Seconds()
		s.metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(wrapper.statusCode))
		s.metrics.RecordHTTPDuration(r.Method, path, duration)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
