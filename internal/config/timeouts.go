// Package config provides centralized timeout constants for the application.
//
// These values are tuned around the two slow paths of the service:
//   - chat completions against the oracle providers (seconds, occasionally
//     tens of seconds under load)
//   - embedding calls while (re)building the vector index
//
// Everything else (catalog lookups, session bookkeeping, file writes) is
// local and fast.
package config

import "time"

// Turn processing timeouts
const (
	// TurnProcessing is the timeout for handling a single interview turn,
	// including up to two oracle calls (primary plus one fallback attempt)
	// and the knowledge save.
	TurnProcessing = 60 * time.Second

	// HTTPReadHeader is the HTTP server read-header timeout.
	HTTPReadHeader = 10 * time.Second

	// HTTPRead is the HTTP server read timeout. Request bodies are small
	// JSON payloads.
	HTTPRead = 15 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Should accommodate TurnProcessing + response serialization.
	HTTPWrite = 65 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Oracle timeouts
const (
	// OracleRequest is the timeout for a single chat completion call.
	OracleRequest = 40 * time.Second

	// OracleBackoffInitial is the initial delay before the fallback attempt
	// when the primary call failed retryably. Full jitter is applied.
	OracleBackoffInitial = 500 * time.Millisecond

	// OracleBackoffMax caps the fallback delay, including server-provided
	// Retry-After hints.
	OracleBackoffMax = 5 * time.Second

	// EmbeddingRequest is the timeout for a single embedding API call.
	EmbeddingRequest = 30 * time.Second
)

// Background job intervals
const (
	// SnapshotInterval is how often the session store is snapshotted in the
	// background, in addition to the per-turn snapshot.
	SnapshotInterval = 5 * time.Minute

	// ArchiveUploadInterval is how often the data directory is mirrored to
	// the S3 archive when enabled.
	ArchiveUploadInterval = 30 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-IP limiter
	// entries are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// MetricsUpdateInterval is how often gauge metrics (active sessions,
	// rate limiter clients) are refreshed.
	MetricsUpdateInterval = 30 * time.Second
)

// Retrieval timeouts
const (
	// RetrievalTimeout is the timeout for hybrid retrieval in QA mode.
	// This includes an embedding call for the query plus the vector and
	// BM25 searches.
	RetrievalTimeout = 30 * time.Second
)

// Warmup
const (
	// WarmupGrace is how long /readyz may report not-ready while the first
	// index build runs. A cold vector index embeds the whole catalog, which
	// takes a few minutes under embedding rate limits.
	WarmupGrace = 3 * time.Minute

	// WarmupTimeout bounds the initial warmup run itself.
	WarmupTimeout = 10 * time.Minute

	// ArchiveRestoreTimeout bounds the startup restore from the S3 mirror.
	ArchiveRestoreTimeout = 2 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
