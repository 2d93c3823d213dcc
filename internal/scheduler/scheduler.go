// Package scheduler runs delayed per-key tasks where scheduling a key again
// replaces whatever was pending under it.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending task per key
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*task
	seq    uint64
}

type task struct {
	timer *time.Timer
	id    uint64
}

// New creates a Scheduler
func New() *Scheduler {
	return &Scheduler{timers: make(map[string]*task)}
}

// Schedule runs fn after d under key, stopping any task already pending for key.
// It reports whether an earlier task was replaced.
func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
		replaced = true
	}

	s.seq++
	id := s.seq
	t := &task{id: id}
	t.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current.id != id {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = t
	return replaced
}

// Cancel stops the task pending under key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.timers, key)
	return true
}

// Pending reports whether a task is waiting under key
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Stop cancels every pending task
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, key)
	}
}
