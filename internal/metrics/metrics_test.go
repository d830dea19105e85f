package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Verify all metric fields are initialized
	if m.InterviewTurnsTotal == nil {
		t.Error("InterviewTurnsTotal is nil")
	}
	if m.StageTransitionsTotal == nil {
		t.Error("StageTransitionsTotal is nil")
	}
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
	if m.KnowledgeSavesTotal == nil {
		t.Error("KnowledgeSavesTotal is nil")
	}
	if m.OracleRequestsTotal == nil {
		t.Error("OracleRequestsTotal is nil")
	}
	if m.OracleRequestDuration == nil {
		t.Error("OracleRequestDuration is nil")
	}
	if m.OracleFallbackTotal == nil {
		t.Error("OracleFallbackTotal is nil")
	}
	if m.OracleTokensTotal == nil {
		t.Error("OracleTokensTotal is nil")
	}
	if m.RetrievalRequestsTotal == nil {
		t.Error("RetrievalRequestsTotal is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.RateLimiterDropped == nil {
		t.Error("RateLimiterDropped is nil")
	}
	if m.WarmupTasksTotal == nil {
		t.Error("WarmupTasksTotal is nil")
	}
	if m.WarmupDuration == nil {
		t.Error("WarmupDuration is nil")
	}
	if m.ArchiveUploadsTotal == nil {
		t.Error("ArchiveUploadsTotal is nil")
	}
}

func TestRecordTurn(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordTurn("general")
	m.RecordTurn("in_tl")
	m.RecordTurn("wrap_up")
}

func TestRecordStageTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordStageTransition("general", "tl_search")
	m.RecordStageTransition("tl_search", "in_tl")
	// no-op transition is not counted
	m.RecordStageTransition("in_tl", "in_tl")

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != "interview_stage_transitions_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Errorf("Expected 2 transition series, got %d", len(mf.GetMetric()))
		}
	}
}

func TestRecordKnowledgeSave(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordKnowledgeSave("created")
	m.RecordKnowledgeSave("merged")
	m.RecordKnowledgeSave("noop")
	m.RecordKnowledgeSave("error")
}

func TestRecordRetrieval(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordRetrieval("bm25", "success", 0.01)
	m.RecordRetrieval("vector", "error", 0.5)
	m.RecordRetrieval("hybrid", "success", 0.2)
}

func TestRecordHTTPError(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordHTTPError("timeout", "retrieve")
	m.RecordHTTPError("rate_limit", "interview_start")
	m.RecordHTTPError("not_found", "traces")
}

func TestRecordRateLimiterDrop(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordRateLimiterDrop("api")
	m.RecordRateLimiterDrop("embedding")
}

func TestRecordWarmupTask(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordWarmupTask("catalog", "success")
	m.RecordWarmupTask("bm25", "success")
	m.RecordWarmupTask("vectordb", "error")
}

func TestRecordArchiveUpload(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordArchiveUpload("success", 1.5)
	m.RecordArchiveUpload("error", 0)
	m.RecordArchiveUpload("skipped", 0)
}

func TestMetrics_WithDefaultRegistry(t *testing.T) {
	// Metrics register on their own registry without touching the
	// default one
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordTurn("general")
	m.RecordKnowledgeSave("created")
	m.RecordRetrieval("hybrid", "success", 0.1)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Error("No metrics were gathered")
	}

	expectedMetrics := map[string]bool{
		"interview_turns_total":           false,
		"interview_knowledge_saves_total": false,
		"retrieval_requests_total":        false,
		"retrieval_duration_seconds":      false,
	}

	for _, mf := range metricFamilies {
		if _, ok := expectedMetrics[mf.GetName()]; ok {
			expectedMetrics[mf.GetName()] = true
		}
	}

	for name, found := range expectedMetrics {
		if !found {
			t.Errorf("Expected metric %q not found", name)
		}
	}
}

func TestGlobalRecorders(t *testing.T) {
	// Nil-safe before InitGlobal
	OracleTotal = nil
	OracleDuration = nil
	OracleFallback = nil
	OracleTokens = nil
	RecordOracleSuccess("resolve_tl", "openai", 0.3)
	RecordOracleError("resolve_tl", "openai", "rate_limited")
	RecordOracleFallback("openai", "gemini")
	RecordOracleTokens("openai", 100, 50)

	registry := prometheus.NewRegistry()
	m := New(registry)
	InitGlobal(m)

	RecordOracleSuccess("resolve_tl", "openai", 0.3)
	RecordOracleError("extract_facts", "gemini", "error")
	RecordOracleFallback("openai", "gemini")
	RecordOracleTokens("openai", 100, 50)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "oracle_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("oracle_requests_total not recorded")
	}
}
