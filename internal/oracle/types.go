// Package oracle talks to the LLM providers. It hides provider wire
// formats behind a single Complete call, classifies failures into the
// three kinds the dialogue controller reacts to, and writes an audit
// trace of every call.
package oracle

import (
	"context"
	"time"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Message roles on the oracle wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one oracle call. Op and Phase are bookkeeping for the
// trace; JSONOnly additionally forces a pure JSON object answer.
type Request struct {
	Op          string
	SessionID   string
	Phase       string
	Messages    []Message
	JSONOnly    bool
	MaxTokens   int64
	Temperature float64
}

// Usage reports token consumption of one call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Response is the provider-independent result of a call.
type Response struct {
	Content  string
	Provider Provider
	Model    string
	Usage    Usage
}

// Client is a single-provider chat completion client.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() Provider
	Model() string
}

// RetryConfig controls the backoff before the single fallback attempt.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the standard backoff window.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}
