// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "MW_PORT"
	EnvLogLevel        = "MW_LOG_LEVEL"
	EnvShutdownTimeout = "MW_SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir     = "MW_DATA_DIR"
	EnvCatalogPath = "MW_CATALOG_PATH"

	// Oracle (primary chat model, OpenAI-compatible)
	EnvOracleAPIKey        = "MW_ORACLE_API_KEY"
	EnvOracleBaseURL       = "MW_ORACLE_BASE_URL"
	EnvOracleModel         = "MW_ORACLE_MODEL"
	EnvOracleFallbackModel = "MW_ORACLE_FALLBACK_MODEL"
	EnvGeminiAPIKey        = "MW_GEMINI_API_KEY"

	// Interview tuning
	EnvMaxInTLRounds       = "MW_MAX_IN_TL_ROUNDS"
	EnvResolveConfidence   = "MW_RESOLVE_CONFIDENCE"
	EnvWroteDirectMinProb  = "MW_WROTE_DIRECT_MIN_PROB"
	EnvMaxGeneralQuestions = "MW_MAX_GENERAL_QUESTIONS"
	EnvEvalSummaryTurns    = "MW_EVAL_SUMMARY_TURNS"
	EnvRetrieveTopK        = "MW_RETRIEVE_TOP_K"

	// Rate limits
	EnvAPIRatePerMinute       = "MW_API_RATE_PER_MINUTE"
	EnvEmbeddingRatePerMinute = "MW_EMBEDDING_RATE_PER_MINUTE"

	// Warmup gating
	EnvWaitForWarmup     = "MW_WAIT_FOR_WARMUP"
	EnvWarmupGracePeriod = "MW_WARMUP_GRACE_PERIOD"

	// Archive (S3-compatible mirror of the data directory)
	EnvArchiveEnabled    = "MW_ARCHIVE_ENABLED"
	EnvArchiveInterval   = "MW_ARCHIVE_INTERVAL"
	EnvS3Endpoint        = "MW_S3_ENDPOINT"
	EnvS3AccessKeyID     = "MW_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "MW_S3_SECRET_ACCESS_KEY"
	EnvS3Bucket          = "MW_S3_BUCKET"
	EnvS3Prefix          = "MW_S3_PREFIX"

	// Sentry Feature
	EnvSentryEnabled     = "MW_SENTRY_ENABLED"
	EnvSentryToken       = "MW_SENTRY_TOKEN"
	EnvSentryHost        = "MW_SENTRY_HOST"
	EnvSentryEnvironment = "MW_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "MW_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "MW_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "MW_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "MW_METRICS_USERNAME"
	EnvMetricsPassword = "MW_METRICS_PASSWORD"
)
