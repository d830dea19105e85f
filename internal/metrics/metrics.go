package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Interview metrics
	InterviewTurnsTotal   *prometheus.CounterVec
	StageTransitionsTotal *prometheus.CounterVec
	SessionsActive        prometheus.Gauge
	KnowledgeSavesTotal   *prometheus.CounterVec

	// Oracle metrics
	OracleRequestsTotal   *prometheus.CounterVec
	OracleRequestDuration *prometheus.HistogramVec
	OracleFallbackTotal   *prometheus.CounterVec
	OracleTokensTotal     *prometheus.CounterVec

	// Retrieval metrics
	RetrievalRequestsTotal   *prometheus.CounterVec
	RetrievalDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec
	RateLimiterDropped      *prometheus.CounterVec

	// Warmup metrics
	WarmupTasksTotal *prometheus.CounterVec
	WarmupDuration   prometheus.Histogram

	// Archive metrics
	ArchiveUploadsTotal   *prometheus.CounterVec
	ArchiveUploadDuration prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Interview metrics
		InterviewTurnsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_turns_total",
				Help: "Total number of processed interview turns by stage",
			},
			[]string{"stage"},
		),

		StageTransitionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_stage_transitions_total",
				Help: "Total number of stage transitions",
			},
			[]string{"from", "to"},
		),

		SessionsActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "interview_sessions_active",
				Help: "Number of sessions currently held in the store",
			},
		),

		KnowledgeSavesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_knowledge_saves_total",
				Help: "Total number of knowledge save attempts by result",
			},
			[]string{"result"}, // result: created, merged, noop, error
		),

		// Oracle metrics
		OracleRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_requests_total",
				Help: "Total number of oracle calls by operation, provider and outcome",
			},
			[]string{"op", "provider", "outcome"}, // outcome: success, quota_exhausted, rate_limited, error
		),

		OracleRequestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracle_request_duration_seconds",
				Help:    "Oracle call duration in seconds by operation and provider",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40}, // matches 40s request timeout
			},
			[]string{"op", "provider"},
		),

		OracleFallbackTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_fallback_total",
				Help: "Total number of fallback attempts between providers",
			},
			[]string{"from", "to"},
		),

		OracleTokensTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_tokens_total",
				Help: "Total tokens consumed by provider and kind",
			},
			[]string{"provider", "kind"}, // kind: prompt, completion
		),

		// Retrieval metrics
		RetrievalRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_requests_total",
				Help: "Total number of retrieval requests by kind and status",
			},
			[]string{"kind", "status"}, // kind: bm25, vector, hybrid; status: success, error
		),

		RetrievalDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_duration_seconds",
				Help:    "Retrieval duration in seconds by kind",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"kind"},
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Total HTTP errors by type and endpoint",
			},
			[]string{"error_type", "endpoint"}, // error_type: timeout, rate_limit, not_found, invalid_input, internal
		),

		// Rate limiter metrics
		RateLimiterWaitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"limiter_type"}, // limiter_type: api, embedding
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),

		// Warmup metrics
		WarmupTasksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "warmup_tasks_total",
				Help: "Total number of warmup tasks by task and status",
			},
			[]string{"task", "status"}, // status: success, error
		),

		WarmupDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warmup_duration_seconds",
				Help:    "Total duration of the warmup process",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),

		// Archive metrics
		ArchiveUploadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_uploads_total",
				Help: "Total number of archive uploads by status",
			},
			[]string{"status"}, // status: success, error, skipped
		),

		ArchiveUploadDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "archive_upload_duration_seconds",
				Help:    "Archive upload duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}

	return m
}

// RecordTurn records a processed interview turn
func (m *Metrics) RecordTurn(stage string) {
	m.InterviewTurnsTotal.WithLabelValues(stage).Inc()
}

// RecordStageTransition records a stage change
func (m *Metrics) RecordStageTransition(from, to string) {
	if from == to {
		return
	}
	m.StageTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetActiveSessions updates the active session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.SessionsActive.Set(float64(n))
}

// RecordKnowledgeSave records a knowledge save attempt
func (m *Metrics) RecordKnowledgeSave(result string) {
	m.KnowledgeSavesTotal.WithLabelValues(result).Inc()
}

// RecordRetrieval records a retrieval request
func (m *Metrics) RecordRetrieval(kind, status string, duration float64) {
	m.RetrievalRequestsTotal.WithLabelValues(kind, status).Inc()
	m.RetrievalDurationSeconds.WithLabelValues(kind).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, endpoint string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordWarmupTask records a warmup task completion
func (m *Metrics) RecordWarmupTask(task, status string) {
	m.WarmupTasksTotal.WithLabelValues(task, status).Inc()
}

// RecordWarmupDuration records total warmup duration
func (m *Metrics) RecordWarmupDuration(duration float64) {
	m.WarmupDuration.Observe(duration)
}

// RecordArchiveUpload records an archive upload attempt
func (m *Metrics) RecordArchiveUpload(status string, duration float64) {
	m.ArchiveUploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.ArchiveUploadDuration.Observe(duration)
	}
}
