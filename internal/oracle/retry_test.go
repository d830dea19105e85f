package oracle

import (
	"context"
	"testing"
	"time"
)

func TestCalculateBackoffZeroAttempt(t *testing.T) {
	if got := CalculateBackoff(0, time.Second, 10*time.Second); got != 0 {
		t.Errorf("CalculateBackoff(0) = %v, want 0", got)
	}
	if got := CalculateBackoff(-1, time.Second, 10*time.Second); got != 0 {
		t.Errorf("CalculateBackoff(-1) = %v, want 0", got)
	}
}

func TestCalculateBackoffBounds(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 2 * time.Second

	for attempt := 1; attempt <= 8; attempt++ {
		// Pre-jitter ceiling for this attempt: initial * 2^(attempt-1), capped at max.
		ceiling := initial
		for i := 1; i < attempt; i++ {
			ceiling *= 2
			if ceiling >= max {
				ceiling = max
				break
			}
		}

		for i := 0; i < 50; i++ {
			got := CalculateBackoff(attempt, initial, max)
			if got < 0 {
				t.Fatalf("attempt %d: backoff %v is negative", attempt, got)
			}
			if got >= ceiling {
				t.Fatalf("attempt %d: backoff %v not below ceiling %v", attempt, got, ceiling)
			}
		}
	}
}

func TestCalculateBackoffJitterSpreads(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		seen[CalculateBackoff(3, 100*time.Millisecond, 10*time.Second)] = true
	}
	if len(seen) < 2 {
		t.Error("expected jittered backoff to produce varying delays")
	}
}

func TestSleepZeroDuration(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil", err)
	}
}

func TestSleepCompletes(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep returned %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Sleep returned after %v, want at least 10ms", elapsed)
	}
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, time.Minute); err == nil {
		t.Error("Sleep with canceled context should return an error")
	}
}
