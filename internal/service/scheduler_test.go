package service

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSchedulerRunsImmediateEffect(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	done := make(chan struct{})
	s.After(0, "immediate", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("immediate effect never ran")
	}
}

func TestSchedulerDefersEffect(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	var fired atomic.Int32
	start := time.Now()
	done := make(chan struct{})
	s.After(50*time.Millisecond, "deferred", func() {
		fired.Add(1)
		close(done)
	})

	if fired.Load() != 0 {
		t.Fatal("effect ran before its instant")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deferred effect never ran")
	}

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("effect ran too early: %v", elapsed)
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("effect ran %d times, want exactly once", got)
	}
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	var fired atomic.Int32
	s.After(50*time.Millisecond, "cancelled", func() { fired.Add(1) })
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("stopped scheduler still ran a pending effect")
	}
}

func TestSchedulerRecoversFromPanickingEffect(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	done := make(chan struct{})
	s.After(0, "panics", func() { panic("boom") })
	s.After(10*time.Millisecond, "survivor", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler died after a panicking effect")
	}
}

func TestSchedulerEveryTicksRepeatedly(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	var ticks atomic.Int32
	s.Every(10*time.Millisecond, "ticker", func() { ticks.Add(1) })

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ticks.Load() < 3 {
		t.Fatalf("ticker fired %d times, want at least 3", ticks.Load())
	}
}
