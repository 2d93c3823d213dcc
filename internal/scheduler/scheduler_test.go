package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedule_Runs(t *testing.T) {
	s := New()
	done := make(chan struct{})

	s.Schedule("r1", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected task to run")
	}
	if s.Pending("r1") {
		t.Error("expected no pending task after it ran")
	}
}

// TestSchedule_ReplacesPending tests that a second schedule cancels the first
func TestSchedule_ReplacesPending(t *testing.T) {
	s := New()
	var first, second atomic.Int32
	done := make(chan struct{})

	if replaced := s.Schedule("r1", 20*time.Millisecond, func() { first.Add(1) }); replaced {
		t.Error("expected nothing to replace on first schedule")
	}
	if replaced := s.Schedule("r1", 40*time.Millisecond, func() { second.Add(1); close(done) }); !replaced {
		t.Error("expected second schedule to replace the first")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected replacement task to run")
	}
	time.Sleep(30 * time.Millisecond)

	if first.Load() != 0 {
		t.Error("expected replaced task never to run")
	}
	if second.Load() != 1 {
		t.Errorf("expected replacement to run once, ran %d", second.Load())
	}
}

func TestCancel(t *testing.T) {
	s := New()
	var ran atomic.Bool

	s.Schedule("r1", 20*time.Millisecond, func() { ran.Store(true) })
	if !s.Cancel("r1") {
		t.Error("expected cancel to find the task")
	}
	if s.Cancel("r1") {
		t.Error("expected second cancel to find nothing")
	}

	time.Sleep(40 * time.Millisecond)
	if ran.Load() {
		t.Error("expected cancelled task not to run")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	s := New()
	var count atomic.Int32
	done := make(chan struct{}, 2)

	s.Schedule("r1", 5*time.Millisecond, func() { count.Add(1); done <- struct{}{} })
	s.Schedule("r2", 5*time.Millisecond, func() { count.Add(1); done <- struct{}{} })

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected both tasks to run")
		}
	}
	if count.Load() != 2 {
		t.Errorf("expected 2 runs, got %d", count.Load())
	}
}

func TestStop(t *testing.T) {
	s := New()
	var ran atomic.Bool
	s.Schedule("r1", 10*time.Millisecond, func() { ran.Store(true) })
	s.Schedule("r2", 10*time.Millisecond, func() { ran.Store(true) })

	s.Stop()
	time.Sleep(30 * time.Millisecond)

	if ran.Load() {
		t.Error("expected no task to run after Stop")
	}
	if s.Pending("r1") || s.Pending("r2") {
		t.Error("expected no pending tasks after Stop")
	}
}
