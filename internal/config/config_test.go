package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port '8000', got '%s'", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.OracleModel != "gpt-4o-mini" {
		t.Errorf("Expected default oracle model 'gpt-4o-mini', got '%s'", cfg.OracleModel)
	}
	if cfg.OracleFallbackModel != "gemini-2.0-flash" {
		t.Errorf("Expected default fallback model 'gemini-2.0-flash', got '%s'", cfg.OracleFallbackModel)
	}
	if cfg.MaxInTLRounds != 6 {
		t.Errorf("Expected default MaxInTLRounds 6, got %d", cfg.MaxInTLRounds)
	}
	if cfg.ResolveConfidence != 0.6 {
		t.Errorf("Expected default ResolveConfidence 0.6, got %v", cfg.ResolveConfidence)
	}
	if cfg.WroteDirectMinProb != 0.85 {
		t.Errorf("Expected default WroteDirectMinProb 0.85, got %v", cfg.WroteDirectMinProb)
	}
	if cfg.MaxGeneralQuestions != 2 {
		t.Errorf("Expected default MaxGeneralQuestions 2, got %d", cfg.MaxGeneralQuestions)
	}
	if cfg.RetrieveTopK != 5 {
		t.Errorf("Expected default RetrieveTopK 5, got %d", cfg.RetrieveTopK)
	}

	// No oracle key in a clean environment
	if cfg.HasOracle() {
		t.Error("HasOracle() should be false without an API key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvOracleAPIKey, "sk-test")
	t.Setenv(EnvMaxInTLRounds, "4")
	t.Setenv(EnvResolveConfidence, "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected port '9000', got '%s'", cfg.Port)
	}
	if !cfg.HasOracle() {
		t.Error("HasOracle() should be true with an API key")
	}
	if cfg.MaxInTLRounds != 4 {
		t.Errorf("Expected MaxInTLRounds 4, got %d", cfg.MaxInTLRounds)
	}
	if cfg.ResolveConfidence != 0.7 {
		t.Errorf("Expected ResolveConfidence 0.7, got %v", cfg.ResolveConfidence)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:                "8000",
			DataDir:             "/data",
			MaxInTLRounds:       6,
			ResolveConfidence:   0.6,
			WroteDirectMinProb:  0.85,
			MaxGeneralQuestions: 2,
			RetrieveTopK:        5,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "missing port",
			mutate:      func(c *Config) { c.Port = "" },
			wantErr:     true,
			errContains: EnvPort,
		},
		{
			name:        "missing data dir",
			mutate:      func(c *Config) { c.DataDir = "" },
			wantErr:     true,
			errContains: EnvDataDir,
		},
		{
			name:        "non-positive rounds",
			mutate:      func(c *Config) { c.MaxInTLRounds = 0 },
			wantErr:     true,
			errContains: EnvMaxInTLRounds,
		},
		{
			name:        "confidence out of range",
			mutate:      func(c *Config) { c.ResolveConfidence = 1.5 },
			wantErr:     true,
			errContains: EnvResolveConfidence,
		},
		{
			name:        "wrote threshold out of range",
			mutate:      func(c *Config) { c.WroteDirectMinProb = -0.1 },
			wantErr:     true,
			errContains: EnvWroteDirectMinProb,
		},
		{
			name: "archive enabled without bucket",
			mutate: func(c *Config) {
				c.ArchiveEnabled = true
				c.S3AccessKeyID = "key"
				c.S3SecretAccessKey = "secret"
			},
			wantErr:     true,
			errContains: EnvS3Bucket,
		},
		{
			name: "missing oracle key is not an error",
			mutate: func(c *Config) {
				c.OracleAPIKey = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"catalog default", cfg.CatalogPath(), filepath.Join("/data", "catalog.json")},
		{"sessions", cfg.SessionsPath(), filepath.Join("/data", "sessions.json")},
		{"traces", cfg.TracesDir(), filepath.Join("/data", "traces")},
		{"jsonld", cfg.JSONLDPath(), filepath.Join("/data", "knowledge.jsonld")},
		{"turtle", cfg.TurtlePath(), filepath.Join("/data", "knowledge.ttl")},
		{"evaluations", cfg.EvaluationsPath(), filepath.Join("/data", "evaluations.jsonl")},
		{"vectordb", cfg.VectorDBPath(), filepath.Join("/data", "vectordb")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	explicit := &Config{DataDir: "/data", CatalogFile: "/elsewhere/modulhandbuch.json"}
	if explicit.CatalogPath() != "/elsewhere/modulhandbuch.json" {
		t.Errorf("CatalogPath() override not honored, got %q", explicit.CatalogPath())
	}
}
