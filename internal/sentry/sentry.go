// Package sentry wires the Sentry SDK to Better Stack error tracking.
// Interview turns run long LLM pipelines, so unexpected errors are
// reported with request context instead of only landing in the logs.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Config carries the Better Stack error tracking settings.
type Config struct {
	// Enabled toggles error tracking without dropping the token from
	// the environment.
	Enabled bool

	// Token is the Better Stack Errors source token.
	Token string

	// Host is the ingesting host, e.g. "errors.betterstack.com".
	Host string

	// Environment identifies the deployment, e.g. "production".
	Environment string

	// Release identifies the build, usually the injected version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0).
	SampleRate float64
}

// Setup initializes the process-global Sentry client. A disabled
// config (Enabled false or empty token) is a no-op.
func Setup(cfg Config) error {
	if !cfg.Enabled || cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when error tracking is enabled")
	}

	// Better Stack ingests through a Sentry DSN. The SDK insists on a
	// project ID suffix, the backend ignores it.
	dsn := fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host)

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		AttachStacktrace: true,
	})
}

// Middleware binds a request-scoped Sentry hub to each request. Panics
// are captured and re-raised so the recovery middleware still writes
// the 500 response.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Enabled reports whether a Sentry client is active.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureError reports err, preferring the request-scoped hub when ctx
// carries one. Safe to call when Sentry is disabled.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// Flush drains buffered events, waiting up to timeout. Returns true
// when everything was delivered in time.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
