// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, oracle models, interview tuning, and persistence paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir     string // Directory for sessions, traces, knowledge graph and evaluations
	CatalogFile string // Course catalog JSON (empty = DataDir/catalog.json)

	// Oracle Configuration (primary model is OpenAI-compatible; a fallback
	// model prefixed "gemini" is served via the Gemini API instead)
	OracleAPIKey        string
	OracleBaseURL       string
	OracleModel         string
	OracleFallbackModel string
	GeminiAPIKey        string

	// Interview tuning
	MaxInTLRounds       int     // Fact rounds per course before wrap-up (default: 6)
	ResolveConfidence   float64 // Minimum confidence to accept a course resolution (default: 0.6)
	WroteDirectMinProb  float64 // Minimum wrote probability to skip the written confirm (default: 0.85)
	MaxGeneralQuestions int     // General questions before steering to course search (default: 2)
	EvalSummaryTurns    int     // Transcript tail summarized for the evaluation (default: 30)
	RetrieveTopK        int     // Sources returned in QA mode (default: 5)

	// Rate limits
	APIRatePerMinute       int // Per-IP request budget on /api routes (0 = disabled)
	EmbeddingRatePerMinute int // Embedding API budget for vector index builds

	// Warmup gating
	WaitForWarmup     bool          // Gate /readyz and turn routes until the first index build completes
	WarmupGracePeriod time.Duration // Report ready anyway after this long

	// Archive Configuration
	ArchiveEnabled    bool
	ArchiveInterval   time.Duration
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3Prefix          string

	// Sentry Configuration
	SentryEnabled     bool
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack Configuration
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// Server Configuration
		Port:            getEnv(EnvPort, "8000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		// Data Configuration
		DataDir:     getEnv(EnvDataDir, getDefaultDataDir()),
		CatalogFile: getEnv(EnvCatalogPath, ""),

		// Oracle Configuration
		OracleAPIKey:        getEnv(EnvOracleAPIKey, ""),
		OracleBaseURL:       getEnv(EnvOracleBaseURL, ""),
		OracleModel:         getEnv(EnvOracleModel, "gpt-4o-mini"),
		OracleFallbackModel: getEnv(EnvOracleFallbackModel, "gemini-2.0-flash"),
		GeminiAPIKey:        getEnv(EnvGeminiAPIKey, ""),

		// Interview tuning
		MaxInTLRounds:       getIntEnv(EnvMaxInTLRounds, 6),
		ResolveConfidence:   getFloatEnv(EnvResolveConfidence, 0.6),
		WroteDirectMinProb:  getFloatEnv(EnvWroteDirectMinProb, 0.85),
		MaxGeneralQuestions: getIntEnv(EnvMaxGeneralQuestions, 2),
		EvalSummaryTurns:    getIntEnv(EnvEvalSummaryTurns, 30),
		RetrieveTopK:        getIntEnv(EnvRetrieveTopK, 5),

		// Rate limits
		APIRatePerMinute:       getIntEnv(EnvAPIRatePerMinute, 120),
		EmbeddingRatePerMinute: getIntEnv(EnvEmbeddingRatePerMinute, 1000),

		// Warmup gating
		WaitForWarmup:     getBoolEnv(EnvWaitForWarmup, false),
		WarmupGracePeriod: getDurationEnv(EnvWarmupGracePeriod, WarmupGrace),

		// Archive Configuration
		ArchiveEnabled:    getBoolEnv(EnvArchiveEnabled, false),
		ArchiveInterval:   getDurationEnv(EnvArchiveInterval, ArchiveUploadInterval),
		S3Endpoint:        getEnv(EnvS3Endpoint, ""),
		S3AccessKeyID:     getEnv(EnvS3AccessKeyID, ""),
		S3SecretAccessKey: getEnv(EnvS3SecretAccessKey, ""),
		S3Bucket:          getEnv(EnvS3Bucket, ""),
		S3Prefix:          getEnv(EnvS3Prefix, "interview"),

		// Sentry Configuration
		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		// Better Stack Configuration
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		// Metrics Authentication
		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// A missing oracle API key is deliberately not an error: the service then
// runs with deterministic fallbacks only.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.MaxInTLRounds <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxInTLRounds, c.MaxInTLRounds))
	}
	if c.ResolveConfidence < 0 || c.ResolveConfidence > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", EnvResolveConfidence, c.ResolveConfidence))
	}
	if c.WroteDirectMinProb < 0 || c.WroteDirectMinProb > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", EnvWroteDirectMinProb, c.WroteDirectMinProb))
	}
	if c.MaxGeneralQuestions < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvMaxGeneralQuestions, c.MaxGeneralQuestions))
	}
	if c.RetrieveTopK <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvRetrieveTopK, c.RetrieveTopK))
	}
	if c.ArchiveEnabled {
		if c.S3Bucket == "" {
			errs = append(errs, errors.New(EnvS3Bucket+" is required when archive is enabled"))
		}
		if c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			errs = append(errs, errors.New("S3 credentials are required when archive is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// CatalogPath returns the path of the course catalog JSON file.
func (c *Config) CatalogPath() string {
	if c.CatalogFile != "" {
		return c.CatalogFile
	}
	return filepath.Join(c.DataDir, "catalog.json")
}

// SessionsPath returns the path of the session snapshot file.
func (c *Config) SessionsPath() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

// TracesDir returns the directory holding per-session oracle traces.
func (c *Config) TracesDir() string {
	return filepath.Join(c.DataDir, "traces")
}

// JSONLDPath returns the path of the global JSON-LD knowledge graph.
func (c *Config) JSONLDPath() string {
	return filepath.Join(c.DataDir, "knowledge.jsonld")
}

// TurtlePath returns the path of the global Turtle knowledge stream.
func (c *Config) TurtlePath() string {
	return filepath.Join(c.DataDir, "knowledge.ttl")
}

// EvaluationsPath returns the path of the evaluation submissions log.
func (c *Config) EvaluationsPath() string {
	return filepath.Join(c.DataDir, "evaluations.jsonl")
}

// VectorDBPath returns the directory of the persistent vector index.
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.DataDir, "vectordb")
}

// HasOracle returns true if the primary chat model is configured.
func (c *Config) HasOracle() bool {
	return c.OracleAPIKey != ""
}

// HasGemini returns true if the Gemini API key is configured (fallback model
// and embeddings).
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
