package notes

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long edits must pause before an autosave fires.
const DefaultQuietPeriod = 2 * time.Second

// Payload is the full buffer state of one note at one edit revision.
type Payload struct {
	NoteID  string
	Title   string
	Content string
	Rev     uint64
}

// Scheduler debounces payloads: each Schedule restarts the quiet period and
// only the latest payload is committed when it elapses.
type Scheduler struct {
	quiet  time.Duration
	commit func(Payload)

	mu      sync.Mutex
	timer   *time.Timer
	pending *Payload
	gen     uint64
	stopped bool
}

// NewScheduler creates a scheduler that calls commit from its own goroutine.
func NewScheduler(quiet time.Duration, commit func(Payload)) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Scheduler{quiet: quiet, commit: commit}
}

// Schedule replaces the pending payload and restarts the timer.
// It is a no-op after Stop.
func (s *Scheduler) Schedule(p Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.gen++
	s.pending = &p
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.quiet, func() { s.fire(gen) })
}

// fire commits the pending payload unless a later call superseded gen.
func (s *Scheduler) fire(gen uint64) {
	p, ok := s.take(gen)
	if ok {
		s.commit(p)
	}
}

func (s *Scheduler) take(gen uint64) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || gen != s.gen || s.pending == nil {
		return Payload{}, false
	}
	p := *s.pending
	s.pending = nil
	s.timer = nil
	return p, true
}

// Cancel drops the pending payload and returns it.
func (s *Scheduler) Cancel() (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

func (s *Scheduler) cancelLocked() (Payload, bool) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.pending == nil {
		return Payload{}, false
	}
	p := *s.pending
	s.pending = nil
	return p, true
}

// Flush commits the pending payload on the calling goroutine.
// It reports whether there was one.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	p, ok := s.cancelLocked()
	s.mu.Unlock()
	if ok {
		s.commit(p)
	}
	return ok
}

// Pending returns the payload waiting for the quiet period, if any.
func (s *Scheduler) Pending() (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Payload{}, false
	}
	return *s.pending, true
}

// Stop drops any pending payload and disables the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}
