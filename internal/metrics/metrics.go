package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics for the repoanalyzer service
type Metrics struct {
	// Request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	EntriesAnalyzed  prometheus.Histogram
	ErrorsTotal      *prometheus.CounterVec
	ActiveAnalyses   prometheus.Gauge
	ExportsTotal     *prometheus.CounterVec

	// GitHub API metrics
	GitHubAPICallsTotal  *prometheus.CounterVec
	GitHubRateLimitUsed  prometheus.Gauge
	GitHubRateLimitLimit prometheus.Gauge

	// Worker pool metrics
	WorkerPoolSize prometheus.Gauge
	QueueDepth     prometheus.Gauge
	TaskDuration   *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	WebsocketClients prometheus.Gauge
}

// New creates all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewForTesting creates metrics on a private registry so tests can build
// as many instances as they like
func NewForTesting() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith creates and registers all Prometheus metrics on reg
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoanalyzer_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repoanalyzer_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoanalyzer_analyses_total",
				Help: "Total number of finished analysis runs by outcome",
			},
			[]string{"outcome"},
		),

		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "repoanalyzer_analysis_duration_seconds",
				Help:    "Duration of complete analysis runs in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		EntriesAnalyzed: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "repoanalyzer_entries_analyzed",
				Help:    "Number of tree entries per successful analysis",
				Buckets: []float64{10, 100, 1000, 10000, 100000},
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoanalyzer_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "repo_owner", "repo_name"},
		),

		ActiveAnalyses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_active_analyses",
				Help: "Number of analysis runs currently in flight",
			},
		),

		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoanalyzer_exports_total",
				Help: "Total number of rendered views by format",
			},
			[]string{"format"},
		),

		GitHubAPICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoanalyzer_github_api_calls_total",
				Help: "Total number of GitHub API calls made",
			},
			[]string{"endpoint", "status"},
		),

		GitHubRateLimitUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_github_rate_limit_used",
				Help: "Number of GitHub API rate limit requests used",
			},
		),

		GitHubRateLimitLimit: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_github_rate_limit_limit",
				Help: "GitHub API rate limit maximum",
			},
		),

		WorkerPoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_worker_pool_size",
				Help: "Current size of the worker pool",
			},
		),

		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_queue_depth",
				Help: "Current depth of the task queue",
			},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repoanalyzer_task_duration_seconds",
				Help:    "Duration of individual tasks in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"task_type"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_sessions_active",
				Help: "Number of live analysis sessions",
			},
		),

		WebsocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repoanalyzer_websocket_clients",
				Help: "Number of connected websocket subscribers",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records the duration of an HTTP request
func (m *Metrics) RecordHTTPDuration(method, path string, duration float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordAnalysis records a finished analysis run
func (m *Metrics) RecordAnalysis(outcome string, duration float64) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(duration)
}

// RecordEntries records the entry count of a successful analysis
func (m *Metrics) RecordEntries(count int) {
	m.EntriesAnalyzed.Observe(float64(count))
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, repoOwner, repoName string) {
	m.ErrorsTotal.WithLabelValues(errorType, repoOwner, repoName).Inc()
}

// AnalysisStarted increments the in-flight analysis gauge
func (m *Metrics) AnalysisStarted() {
	m.ActiveAnalyses.Inc()
}

// AnalysisFinished decrements the in-flight analysis gauge
func (m *Metrics) AnalysisFinished() {
	m.ActiveAnalyses.Dec()
}

// RecordExport records a rendered view
func (m *Metrics) RecordExport(format string) {
	m.ExportsTotal.WithLabelValues(format).Inc()
}

// RecordGitHubAPICall records a GitHub API call
func (m *Metrics) RecordGitHubAPICall(endpoint, status string) {
	m.GitHubAPICallsTotal.WithLabelValues(endpoint, status).Inc()
}

// UpdateGitHubRateLimit updates the GitHub rate limit metrics
func (m *Metrics) UpdateGitHubRateLimit(used, limit int) {
	m.GitHubRateLimitUsed.Set(float64(used))
	m.GitHubRateLimitLimit.Set(float64(limit))
}

// SetWorkerPoolSize sets the worker pool size
func (m *Metrics) SetWorkerPoolSize(size float64) {
	m.WorkerPoolSize.Set(size)
}

// SetQueueDepth sets the queue depth
func (m *Metrics) SetQueueDepth(depth float64) {
	m.QueueDepth.Set(depth)
}

// RecordTaskDuration records the duration of a task
func (m *Metrics) RecordTaskDuration(taskType string, duration float64) {
	m.TaskDuration.WithLabelValues(taskType).Observe(duration)
}

// SetSessions sets the live session count
func (m *Metrics) SetSessions(count int) {
	m.SessionsActive.Set(float64(count))
}

// SessionClosed decrements the live session gauge
func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
}

// WebsocketConnected increments the websocket subscriber gauge
func (m *Metrics) WebsocketConnected() {
	m.WebsocketClients.Inc()
}

// WebsocketDisconnected decrements the websocket subscriber gauge
func (m *Metrics) WebsocketDisconnected() {
	m.WebsocketClients.Dec()
}
