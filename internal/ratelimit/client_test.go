package ratelimit

import (
	"testing"
	"time"
)

func TestClientLimiter_Basic(t *testing.T) {
	t.Parallel()
	cl := NewClientLimiter(60, time.Hour, nil) // 1/s sustained, burst 5
	defer cl.Stop()

	// Burst allows a handful of immediate requests
	for i := 0; i < 3; i++ {
		if !cl.Allow("198.51.100.7") {
			t.Errorf("Request %d denied within burst", i)
		}
	}

	// Another client has its own budget
	if !cl.Allow("203.0.113.9") {
		t.Error("Second client first request denied")
	}

	if cl.ActiveClients() != 2 {
		t.Errorf("ActiveClients = %d, want 2", cl.ActiveClients())
	}
}

func TestClientLimiter_Exhaustion(t *testing.T) {
	t.Parallel()
	cl := NewClientLimiter(6, time.Hour, mockMetrics()) // 0.1/s, burst 3
	defer cl.Stop()

	allowed := 0
	for i := 0; i < 10; i++ {
		if cl.Allow("client") {
			allowed++
		}
	}
	if allowed == 0 || allowed == 10 {
		t.Errorf("Allowed = %d, want partial denial", allowed)
	}
}

func TestClientLimiter_EmptyKey(t *testing.T) {
	t.Parallel()
	cl := NewClientLimiter(6, time.Hour, nil)
	defer cl.Stop()

	// Unknown client addresses are not limited
	if !cl.Allow("") {
		t.Error("Empty key should always be allowed")
	}
}
