package warmup

import (
	"sync"
	"testing"
	"time"
)

func TestReadinessStateInitial(t *testing.T) {
	t.Parallel()
	state := NewReadinessState(10 * time.Minute)

	if state.IsReady() {
		t.Error("IsReady() = true before warmup")
	}
	if state.Completed() {
		t.Error("Completed() = true before warmup")
	}

	status := state.Status()
	if status.Ready {
		t.Error("status.Ready = true before warmup")
	}
	if status.Reason != "index build in progress" {
		t.Errorf("status.Reason = %q", status.Reason)
	}
	if status.TimeoutSeconds != 600 {
		t.Errorf("status.TimeoutSeconds = %d, want 600", status.TimeoutSeconds)
	}
}

func TestReadinessStateMarkReady(t *testing.T) {
	t.Parallel()
	state := NewReadinessState(10 * time.Minute)

	state.MarkReady()

	if !state.IsReady() {
		t.Error("IsReady() = false after MarkReady()")
	}
	if !state.Completed() {
		t.Error("Completed() = false after MarkReady()")
	}

	status := state.Status()
	if !status.Ready {
		t.Error("status.Ready = false after MarkReady()")
	}
	if status.Reason != "" {
		t.Errorf("status.Reason = %q after MarkReady(), want empty", status.Reason)
	}
}

func TestReadinessStateGracePeriod(t *testing.T) {
	t.Parallel()
	state := NewReadinessState(50 * time.Millisecond)

	if state.IsReady() {
		t.Error("IsReady() = true before grace period elapsed")
	}

	time.Sleep(100 * time.Millisecond)

	if !state.IsReady() {
		t.Error("IsReady() = false after grace period elapsed")
	}
	if state.Completed() {
		t.Error("Completed() = true without MarkReady()")
	}

	status := state.Status()
	if !status.Ready {
		t.Error("status.Ready = false after grace period")
	}
	if status.Reason != "grace period reached (index build may still be running)" {
		t.Errorf("status.Reason = %q", status.Reason)
	}
}

func TestReadinessStateConcurrent(t *testing.T) {
	t.Parallel()
	state := NewReadinessState(10 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			state.IsReady()
			state.Status()
		}()
		go func() {
			defer wg.Done()
			state.MarkReady()
		}()
	}
	wg.Wait()

	if !state.IsReady() {
		t.Error("IsReady() = false after concurrent MarkReady()")
	}
}

func TestReadinessStateMarkReadyIdempotent(t *testing.T) {
	t.Parallel()
	state := NewReadinessState(10 * time.Minute)

	state.MarkReady()
	state.MarkReady()

	if !state.IsReady() {
		t.Error("IsReady() = false after repeated MarkReady()")
	}
}
