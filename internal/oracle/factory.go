package oracle

import (
	"context"
	"strings"

	"github.com/modulwissen/interview-go/internal/logger"
)

// Options configures the oracle factory.
type Options struct {
	// APIKey and BaseURL address the OpenAI-compatible endpoint serving
	// the primary model (and the fallback model unless it is a Gemini one).
	APIKey  string
	BaseURL string
	Model   string

	// FallbackModel is retried once after a transient primary failure.
	// A name with a "gemini" prefix is served via the Gemini API instead.
	FallbackModel string
	GeminiAPIKey  string

	TracesDir string
}

// New builds the oracle adapter from the options. Providers without
// credentials are left out; with none configured the adapter reports
// Enabled() == false and the interview runs on deterministic fallbacks.
func New(ctx context.Context, opts Options, log *logger.Logger) (*Adapter, error) {
	olog := log.WithModule("oracle")
	traces := NewTraceWriter(opts.TracesDir, log)

	var primary Client
	if c := NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model); c != nil {
		primary = c
	}

	var fallback Client
	switch {
	case opts.FallbackModel == "":
		// No fallback configured.
	case strings.HasPrefix(strings.ToLower(opts.FallbackModel), "gemini"):
		gc, err := NewGeminiClient(ctx, opts.GeminiAPIKey, opts.FallbackModel)
		if err != nil {
			olog.WithError(err).WithField("model", opts.FallbackModel).
				Warn("Failed to create Gemini fallback client, continuing without fallback")
		} else if gc != nil {
			fallback = gc
		}
	default:
		if c := NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.FallbackModel); c != nil {
			fallback = c
		}
	}

	adapter := NewAdapter(primary, fallback, traces, DefaultRetryConfig(), log)

	switch {
	case primary != nil && fallback != nil:
		olog.WithField("model", primary.Model()).
			WithField("fallback_model", fallback.Model()).
			WithField("fallback_provider", string(fallback.Provider())).
			Info("Oracle configured with fallback")
	case primary != nil:
		olog.WithField("model", primary.Model()).Info("Oracle configured without fallback")
	case fallback != nil:
		olog.WithField("model", fallback.Model()).Info("Oracle configured with fallback model only")
	default:
		olog.Info("No oracle credentials configured, running with deterministic fallbacks")
	}

	return adapter, nil
}
