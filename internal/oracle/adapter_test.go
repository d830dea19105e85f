package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

type stubClient struct {
	provider Provider
	resp     *Response
	err      error
	calls    int
	requests []Request
}

func (s *stubClient) Complete(_ context.Context, req Request) (*Response, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubClient) Provider() Provider { return s.provider }
func (s *stubClient) Model() string      { return "stub-model" }

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func fastRetry() RetryConfig {
	return RetryConfig{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestAdapterPrimarySuccess(t *testing.T) {
	primary := &stubClient{provider: ProviderOpenAI, resp: &Response{Content: "hallo", Provider: ProviderOpenAI}}
	fallback := &stubClient{provider: ProviderGemini}
	a := NewAdapter(primary, fallback, nil, fastRetry(), testLogger())

	resp, err := a.Complete(context.Background(), Request{Op: "answer", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Complete returned %v", err)
	}
	if resp.Content != "hallo" {
		t.Errorf("Content = %q, want %q", resp.Content, "hallo")
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback calls = %d, want 0", fallback.calls)
	}
}

func TestAdapterQuotaNeverRetries(t *testing.T) {
	primary := &stubClient{
		provider: ProviderOpenAI,
		err:      &Error{Kind: KindQuotaExhausted, Provider: ProviderOpenAI, StatusCode: 429, Err: errors.New("insufficient_quota")},
	}
	fallback := &stubClient{provider: ProviderGemini, resp: &Response{Content: "unused"}}
	a := NewAdapter(primary, fallback, nil, fastRetry(), testLogger())

	_, err := a.Complete(context.Background(), Request{Op: "answer", SessionID: "s1"})
	if !IsQuotaExhausted(err) {
		t.Fatalf("expected quota exhausted error, got %v", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback calls = %d, want 0 after quota exhaustion", fallback.calls)
	}
}

func TestAdapterRateLimitFallsBackOnce(t *testing.T) {
	primary := &stubClient{provider: ProviderOpenAI, err: errors.New("HTTP 429 Too Many Requests")}
	fallback := &stubClient{provider: ProviderGemini, resp: &Response{Content: "aus dem fallback", Provider: ProviderGemini}}
	a := NewAdapter(primary, fallback, nil, fastRetry(), testLogger())

	resp, err := a.Complete(context.Background(), Request{Op: "answer", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Complete returned %v", err)
	}
	if resp.Content != "aus dem fallback" {
		t.Errorf("Content = %q, want fallback response", resp.Content)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestAdapterBothLegsFail(t *testing.T) {
	primary := &stubClient{provider: ProviderOpenAI, err: errors.New("boom")}
	fallback := &stubClient{provider: ProviderGemini, err: errors.New("Rate limit reached")}
	a := NewAdapter(primary, fallback, nil, fastRetry(), testLogger())

	_, err := a.Complete(context.Background(), Request{Op: "answer", SessionID: "s1"})
	if err == nil {
		t.Fatal("expected error when both legs fail")
	}
	if !IsRateLimited(err) {
		t.Errorf("final error should carry the fallback classification, got %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want exactly one attempt per leg", primary.calls, fallback.calls)
	}
}

func TestAdapterFallbackOnlyNoSecondLeg(t *testing.T) {
	fallback := &stubClient{provider: ProviderGemini, err: errors.New("HTTP 429 Too Many Requests")}
	a := NewAdapter(nil, fallback, nil, fastRetry(), testLogger())

	_, err := a.Complete(context.Background(), Request{Op: "answer", SessionID: "s1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if fallback.calls != 1 {
		t.Errorf("fallback calls = %d, want 1 (no retry against itself)", fallback.calls)
	}
}

func TestAdapterDisabled(t *testing.T) {
	a := NewAdapter(nil, nil, nil, fastRetry(), testLogger())

	if a.Enabled() {
		t.Error("Enabled() = true with no providers")
	}
	_, err := a.Complete(context.Background(), Request{Op: "answer"})
	if !errors.Is(err, apperrors.ErrOracleDisabled) {
		t.Errorf("err = %v, want ErrOracleDisabled", err)
	}
}

func TestAdapterInjectsJSONInstruction(t *testing.T) {
	primary := &stubClient{provider: ProviderOpenAI, resp: &Response{Content: "{}"}}
	a := NewAdapter(primary, nil, nil, fastRetry(), testLogger())

	req := Request{
		Op:        "detect_entities",
		SessionID: "s1",
		JSONOnly:  true,
		Messages:  []Message{{Role: RoleUser, Content: "Ich habe Statistik gehört."}},
	}
	if _, err := a.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete returned %v", err)
	}

	sent := primary.requests[0].Messages
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2 (instruction + user)", len(sent))
	}
	if sent[0].Role != RoleSystem || !strings.Contains(sent[0].Content, "JSON-Objekt") {
		t.Errorf("first message = %+v, want JSON system instruction", sent[0])
	}
}

func TestAdapterSkipsJSONInstructionWhenMentioned(t *testing.T) {
	primary := &stubClient{provider: ProviderOpenAI, resp: &Response{Content: "{}"}}
	a := NewAdapter(primary, nil, nil, fastRetry(), testLogger())

	req := Request{
		Op:        "detect_entities",
		SessionID: "s1",
		JSONOnly:  true,
		Messages: []Message{
			{Role: RoleSystem, Content: "Antworte als JSON mit den Feldern unten."},
			{Role: RoleUser, Content: "Ich habe Statistik gehört."},
		},
	}
	if _, err := a.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete returned %v", err)
	}

	if len(primary.requests[0].Messages) != 2 {
		t.Errorf("sent %d messages, want 2 (no extra instruction)", len(primary.requests[0].Messages))
	}
}

func TestAdapterTracesBothLegs(t *testing.T) {
	dir := t.TempDir()
	traces := NewTraceWriter(dir, testLogger())

	primary := &stubClient{provider: ProviderOpenAI, err: errors.New("boom")}
	fallback := &stubClient{provider: ProviderGemini, resp: &Response{Content: "antwort", Provider: ProviderGemini}}
	a := NewAdapter(primary, fallback, traces, fastRetry(), testLogger())

	req := Request{Op: "answer", SessionID: "sess-1", Phase: "in_tl", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	if _, err := a.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete returned %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sess-1.jsonl"))
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("trace has %d lines, want 2", len(lines))
	}

	var first, second TraceEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}

	if !strings.HasPrefix(first.Output, "ERROR:") {
		t.Errorf("first output = %q, want error record", first.Output)
	}
	if second.Output != "antwort" {
		t.Errorf("second output = %q, want %q", second.Output, "antwort")
	}
	for _, ev := range []TraceEvent{first, second} {
		if ev.Op != "answer" || ev.Phase != "in_tl" || ev.SessionID != "sess-1" {
			t.Errorf("trace event fields = %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("trace event timestamp is zero")
		}
	}
}
