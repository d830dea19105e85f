package ratelimit

import (
	"time"

	"github.com/modulwissen/interview-go/internal/metrics"
)

// ClientLimiter limits API requests per client IP. It wraps a KeyedLimiter
// configured from a per-minute budget, the unit the config exposes.
type ClientLimiter struct {
	kl *KeyedLimiter
}

// NewClientLimiter creates a per-client limiter allowing requestsPerMinute
// sustained with a small burst on top.
func NewClientLimiter(requestsPerMinute float64, cleanup time.Duration, m *metrics.Metrics) *ClientLimiter {
	perSecond := requestsPerMinute / 60
	burst := perSecond * 5
	if burst < 3 {
		burst = 3
	}

	return &ClientLimiter{
		kl: NewKeyedLimiter(KeyedConfig{
			Name:          "api",
			Burst:         burst,
			RefillRate:    perSecond,
			CleanupPeriod: cleanup,
			Metrics:       m,
		}),
	}
}

// Allow reports whether a request from the client is within budget.
func (c *ClientLimiter) Allow(clientIP string) bool {
	return c.kl.Allow(clientIP)
}

// ActiveClients returns how many clients currently hold a limiter.
func (c *ClientLimiter) ActiveClients() int {
	return c.kl.GetActiveCount()
}

// Stop stops the cleanup goroutine.
func (c *ClientLimiter) Stop() {
	c.kl.Stop()
}
