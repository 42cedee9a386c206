// Package analyzer sequences the repository metadata, branch and tree
// lookups for one repository and publishes the resulting state.
package analyzer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/model"
	"github.com/sattwyk/repoanalyzer/internal/tree"
)

// State is the analyzer's lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Source is the remote side of an analysis. *github.Client implements it.
type Source interface {
	GetRepository(ctx context.Context, owner, repo string) (*model.GitHubRepository, error)
	GetBranch(ctx context.Context, owner, repo, branch string) (*model.GitHubBranch, error)
	GetRepositoryTree(ctx context.Context, owner, repo, sha string) (*model.GitHubTreeResponse, error)
}

// Snapshot is an immutable view of the analyzer state. Result is set only
// when State is ready; Error and ErrorKind only when it is failed.
type Snapshot struct {
	State      State                 `json:"state"`
	Owner      string                `json:"owner,omitempty"`
	Repo       string                `json:"repo,omitempty"`
	Result     *model.AnalysisResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	ErrorKind  Kind                  `json:"error_kind,omitempty"`
	Generation uint64                `json:"generation"`
}

// Analyzer runs at most one analysis at a time. Starting a new run cancels
// the previous one, and a run publishes only while it is still current.
type Analyzer struct {
	source  Source
	metrics *metrics.Metrics

	mu          sync.Mutex
	snapshot    Snapshot
	generation  uint64
	cancel      context.CancelFunc
	owner, repo string
	subscribers map[int]chan Snapshot
	nextSub     int
	closed      bool
}

// New creates an idle analyzer
func New(source Source, m *metrics.Metrics) *Analyzer {
	return &Analyzer{
		source:      source,
		metrics:     m,
		snapshot:    Snapshot{State: StateIdle},
		subscribers: make(map[int]chan Snapshot),
	}
}

// Analyze runs a full analysis of owner/repo and waits for it
func (a *Analyzer) Analyze(ctx context.Context, owner, repo string) (*model.AnalysisResult, error) {
	runCtx, gen, err := a.begin(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return a.run(runCtx, gen, owner, repo)
}

// Start runs an analysis of owner/repo in the background and returns its generation
func (a *Analyzer) Start(owner, repo string) (uint64, error) {
	runCtx, gen, err := a.begin(context.Background(), owner, repo)
	if err != nil {
		return 0, err
	}
	go func() {
		_, _ = a.run(runCtx, gen, owner, repo)
	}()
	return gen, nil
}

// Retry re-runs the whole sequence for the most recent repository
func (a *Analyzer) Retry(ctx context.Context) (*model.AnalysisResult, error) {
	owner, repo, err := a.last()
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, owner, repo)
}

// StartRetry is Retry in the background
func (a *Analyzer) StartRetry() (uint64, error) {
	owner, repo, err := a.last()
	if err != nil {
		return 0, err
	}
	return a.Start(owner, repo)
}

// Snapshot returns the current state
func (a *Analyzer) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// Subscribe returns a channel that yields the current snapshot and then
// every later one. A slow reader may miss intermediate snapshots but its
// next receive is always the latest. The returned func unsubscribes and
// closes the channel.
func (a *Analyzer) Subscribe() (<-chan Snapshot, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if a.closed {
		close(ch)
		return ch, func() {}
	}

	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = ch
	ch <- a.snapshot

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if sub, ok := a.subscribers[id]; ok {
				delete(a.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cancels any in-flight run and closes all subscriptions
func (a *Analyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	a.generation++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	for id, ch := range a.subscribers {
		delete(a.subscribers, id)
		close(ch)
	}
}

func (a *Analyzer) last() (string, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner == "" {
		return "", "", ErrNothingToRetry
	}
	return a.owner, a.repo, nil
}

// begin supersedes the in-flight run and publishes the loading state
func (a *Analyzer) begin(parent context.Context, owner, repo string) (context.Context, uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, 0, ErrClosed
	}
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	a.generation++
	a.cancel = cancel
	a.owner, a.repo = owner, repo

	a.publishLocked(Snapshot{
		State:      StateLoading,
		Owner:      owner,
		Repo:       repo,
		Generation: a.generation,
	})

	return ctx, a.generation, nil
}

func (a *Analyzer) run(ctx context.Context, gen uint64, owner, repo string) (*model.AnalysisResult, error) {
	startTime := time.Now()
	a.metrics.AnalysisStarted()
	defer a.metrics.AnalysisFinished()

	log.Printf("Starting analysis of %s/%s", owner, repo)

	result, err := a.fetch(ctx, owner, repo)
	duration := time.Since(startTime)

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		a.metrics.RecordAnalysis("superseded", duration.Seconds())
		log.Printf("Analysis of %s/%s superseded", owner, repo)
		return nil, context.Canceled
	}

	a.cancel()
	a.cancel = nil

	if err != nil {
		var runErr *Error
		if !errors.As(err, &runErr) {
			runErr = classify(err, KindUnknown)
		}

		a.metrics.RecordAnalysis("failed", duration.Seconds())
		a.metrics.RecordError(string(runErr.Kind), owner, repo)
		log.Printf("Analysis of %s/%s failed: %v", owner, repo, err)

		a.publishLocked(Snapshot{
			State:      StateFailed,
			Owner:      owner,
			Repo:       repo,
			Error:      runErr.Reason,
			ErrorKind:  runErr.Kind,
			Generation: gen,
		})
		return nil, runErr
	}

	result.Duration = duration.String()
	a.metrics.RecordAnalysis("ready", duration.Seconds())
	a.metrics.RecordEntries(len(result.Entries))
	log.Printf("Analysis of %s/%s completed: %d files, %d folders in %s",
		owner, repo, result.FileCount(), result.FolderCount(), result.Duration)

	a.publishLocked(Snapshot{
		State:      StateReady,
		Owner:      owner,
		Repo:       repo,
		Result:     result,
		Generation: gen,
	})
	return result, nil
}

// fetch performs the three dependent lookups and derives the result
func (a *Analyzer) fetch(ctx context.Context, owner, repo string) (*model.AnalysisResult, error) {
	repoResp, err := a.source.GetRepository(ctx, owner, repo)
	if err != nil {
		return nil, classify(err, KindNotFound)
	}

	meta := repoResp.Metadata()
	if meta.Owner == "" {
		meta.Owner = owner
	}
	if meta.Name == "" {
		meta.Name = repo
	}
	if meta.DefaultBranch == "" {
		return nil, &Error{Kind: KindUnknown, Reason: "repository reports no default branch"}
	}

	branch, err := a.source.GetBranch(ctx, owner, repo, meta.DefaultBranch)
	if err != nil {
		return nil, classify(err, KindBranchLookupFailed)
	}

	treeResp, err := a.source.GetRepositoryTree(ctx, owner, repo, branch.Commit.SHA)
	if err != nil {
		return nil, classify(err, KindTreeFetchFailed)
	}

	entries := treeResp.PathEntries()

	return &model.AnalysisResult{
		Metadata:       meta,
		CommitSHA:      branch.Commit.SHA,
		Entries:        entries,
		Forest:         tree.Build(entries),
		TechStack:      analysis.Labels(analysis.DetectTechStack(entries)),
		ImportantFiles: analysis.ImportantFiles(entries),
		Complexity:     analysis.ComplexityScore(entries),
		Truncated:      treeResp.Truncated,
	}, nil
}

// publishLocked replaces the snapshot and fans it out. Each subscriber
// channel holds at most one pending snapshot, the newest.
func (a *Analyzer) publishLocked(s Snapshot) {
	a.snapshot = s
	for _, ch := range a.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
