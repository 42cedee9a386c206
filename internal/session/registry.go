package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sattwyk/repoanalyzer/internal/analyzer"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
)

// Session pairs one analyzer with its view state
type Session struct {
	ID        string
	Owner     string
	Repo      string
	CreatedAt time.Time
	Analyzer  *analyzer.Analyzer

	mu    sync.Mutex
	state State
}

// State returns the current view state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update replaces the view state with fn's result. If fn fails the state
// is left unchanged.
func (s *Session) Update(fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Registry holds live sessions. Sessions expire after ttl without access
// and the least recently used one is evicted when the registry is full;
// either way its analyzer is closed.
type Registry struct {
	sessions    *expirable.LRU[string, *Session]
	newAnalyzer func() *analyzer.Analyzer
	metrics     *metrics.Metrics
}

// NewRegistry creates a registry holding at most size sessions
func NewRegistry(size int, ttl time.Duration, newAnalyzer func() *analyzer.Analyzer, m *metrics.Metrics) *Registry {
	// Runs under the LRU lock, so the gauge is decremented rather than re-read
	onEvict := func(_ string, s *Session) {
		s.Analyzer.Close()
		m.SessionClosed()
	}
	return &Registry{
		sessions:    expirable.NewLRU[string, *Session](size, onEvict, ttl),
		newAnalyzer: newAnalyzer,
		metrics:     m,
	}
}

// Create registers a new session for owner/repo; the analysis is not started
func (r *Registry) Create(owner, repo string) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		Repo:      repo,
		CreatedAt: time.Now(),
		Analyzer:  r.newAnalyzer(),
		state:     NewState(),
	}
	r.sessions.Add(s.ID, s)
	r.metrics.SetSessions(r.sessions.Len())
	return s
}

// Get looks up a session and renews its expiry
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	r.sessions.Add(id, s)
	return s, true
}

// Remove closes and drops a session
func (r *Registry) Remove(id string) bool {
	ok := r.sessions.Remove(id)
	r.metrics.SetSessions(r.sessions.Len())
	return ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close drops every session
func (r *Registry) Close() {
	r.sessions.Purge()
	r.metrics.SetSessions(0)
}
