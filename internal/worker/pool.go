package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/analyzer"
	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/github"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

// queueFactor sizes the task queue relative to the worker count
const queueFactor = 16

// Task is one repository to analyze
type Task struct {
	Index int
	Ref   string
	Owner string
	Repo  string

	ctx     context.Context
	results chan<- Result
}

// Result is the outcome of one Task. Summary fields are set only when
// State is ready.
type Result struct {
	Index          int            `json:"-"`
	Ref            string         `json:"ref"`
	Owner          string         `json:"owner,omitempty"`
	Repo           string         `json:"repo,omitempty"`
	State          analyzer.State `json:"state"`
	Error          string         `json:"error,omitempty"`
	ErrorKind      analyzer.Kind  `json:"error_kind,omitempty"`
	Files          int            `json:"files"`
	Folders        int            `json:"folders"`
	Complexity     int            `json:"complexity"`
	TechStack      []string       `json:"tech_stack,omitempty"`
	ImportantFiles int            `json:"important_files"`
	ProjectType    string         `json:"project_type,omitempty"`
	Duration       string         `json:"duration,omitempty"`

	Analysis *model.AnalysisResult `json:"-"`
}

// Pool runs independent analyses on a fixed set of workers
type Pool struct {
	config  *config.Config
	metrics *metrics.Metrics
	source  analyzer.Source

	// Channels
	taskChan chan Task

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	activeWorkers int
	stopped       bool
	mu            sync.RWMutex
}

// NewPool creates a new worker pool
func NewPool(cfg *config.Config, m *metrics.Metrics, source analyzer.Source) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:   cfg,
		metrics:  m,
		source:   source,
		taskChan: make(chan Task, cfg.MaxWorkers*queueFactor),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Set initial metrics
	m.SetWorkerPoolSize(0)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("worker pool is stopped")
	}

	if p.activeWorkers > 0 {
		return fmt.Errorf("worker pool is already running")
	}

	// Start workers
	for i := range p.config.MaxWorkers {
		p.wg.Add(1)
		go p.worker(i)
		p.activeWorkers++
	}

	log.Printf("Started %d workers", p.activeWorkers)
	p.metrics.SetWorkerPoolSize(float64(p.activeWorkers))

	return nil
}

// Stop stops the worker pool gracefully. Queued tasks that no worker
// picked up are dropped.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.cancel()
	close(p.taskChan)
	p.mu.Unlock()

	// Wait for all workers to finish
	p.wg.Wait()

	p.mu.Lock()
	p.activeWorkers = 0
	p.mu.Unlock()

	p.metrics.SetWorkerPoolSize(0)
	p.metrics.SetQueueDepth(0)
	log.Printf("Worker pool stopped")

	return nil
}

// SubmitTask queues a task without blocking
func (p *Pool) SubmitTask(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return fmt.Errorf("worker pool is stopped")
	}

	select {
	case p.taskChan <- task:
		p.metrics.SetQueueDepth(float64(len(p.taskChan)))
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// SubmitTaskWait queues a task, waiting for room in the queue until ctx is done
func (p *Pool) SubmitTaskWait(ctx context.Context, task Task) error {
	for {
		err := p.SubmitTask(task)
		if err == nil || p.isStopped() {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-time.After(50 * time.Millisecond):
			// Retry submission
		}
	}
}

// GetQueueDepth returns the current queue depth
func (p *Pool) GetQueueDepth() int {
	return len(p.taskChan)
}

// IsRunning returns true if the worker pool is running
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activeWorkers > 0 && !p.stopped
}

func (p *Pool) isStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// worker is the main worker routine
func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.taskChan:
			if !ok {
				return
			}

			// Update queue depth metric
			p.metrics.SetQueueDepth(float64(len(p.taskChan)))

			result := p.processTask(workerID, task)

			if task.results != nil {
				task.results <- result
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// processTask analyzes one repository on a throwaway analyzer
func (p *Pool) processTask(workerID int, task Task) Result {
	startTime := time.Now()

	result := Result{
		Index: task.Index,
		Ref:   task.Ref,
		Owner: task.Owner,
		Repo:  task.Repo,
	}

	ctx := task.ctx
	if ctx == nil {
		ctx = p.ctx
	}

	a := analyzer.New(p.source, p.metrics)
	defer a.Close()

	analysisResult, err := a.Analyze(ctx, task.Owner, task.Repo)
	if err != nil {
		result.State = analyzer.StateFailed
		result.Error = err.Error()
		result.ErrorKind = analyzer.KindUnknown
		if snap := a.Snapshot(); snap.State == analyzer.StateFailed {
			result.Error = snap.Error
			result.ErrorKind = snap.ErrorKind
		}
		log.Printf("Worker %d: analysis of %s failed: %s", workerID, task.Ref, result.Error)
	} else {
		result.fill(analysisResult)
	}

	p.metrics.RecordTaskDuration("analysis", time.Since(startTime).Seconds())

	return result
}

func (r *Result) fill(res *model.AnalysisResult) {
	r.State = analyzer.StateReady
	r.Analysis = res
	r.Files = res.FileCount()
	r.Folders = res.FolderCount()
	r.Complexity = res.Complexity
	r.TechStack = res.TechStack
	r.ImportantFiles = len(res.ImportantFiles)
	r.Duration = res.Duration

	stack := make([]analysis.Tech, 0, len(res.TechStack))
	for _, label := range res.TechStack {
		stack = append(stack, analysis.Tech(label))
	}
	r.ProjectType = analysis.Summarize(stack, res.Complexity, res.Entries).ProjectType
}

// AnalyzeBatch analyzes every reference on the pool and returns results in
// input order. References that do not parse fail without reaching a worker.
func (p *Pool) AnalyzeBatch(ctx context.Context, refs []string) ([]Result, error) {
	if !p.IsRunning() {
		return nil, fmt.Errorf("worker pool is not running")
	}

	log.Printf("Starting batch analysis of %d repositories", len(refs))

	results := make([]Result, len(refs))
	replies := make(chan Result, len(refs))
	pending := 0

	for i, ref := range refs {
		owner, repo, err := github.ParseRepositoryRef(ref)
		if err != nil {
			results[i] = Result{
				Index:     i,
				Ref:       ref,
				State:     analyzer.StateFailed,
				Error:     err.Error(),
				ErrorKind: analyzer.KindUnknown,
			}
			continue
		}

		task := Task{
			Index:   i,
			Ref:     ref,
			Owner:   owner,
			Repo:    repo,
			ctx:     ctx,
			results: replies,
		}
		if err := p.SubmitTaskWait(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to submit %s: %w", ref, err)
		}
		pending++
	}

	for ; pending > 0; pending-- {
		select {
		case r := <-replies:
			results[r.Index] = r
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, fmt.Errorf("worker pool stopped during batch")
		}
	}

	failed := 0
	for _, r := range results {
		if r.State != analyzer.StateReady {
			failed++
		}
	}
	log.Printf("Batch analysis completed: %d succeeded, %d failed", len(results)-failed, failed)

	return results, nil
}
