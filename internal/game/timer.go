package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Stopwatch tracks elapsed time across pause/resume cycles against an
// injected clock. Start and Pause are idempotent.
type Stopwatch struct {
	clock clockwork.Clock

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	elapsed   time.Duration // accumulated across completed runs
}

// NewStopwatch creates a paused stopwatch at zero elapsed time.
func NewStopwatch(clock clockwork.Clock) *Stopwatch {
	return &Stopwatch{clock: clock}
}

// Start resumes counting. Calling Start on a running stopwatch is a no-op.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.startedAt = s.clock.Now()
}

// Pause freezes the elapsed total. Calling Pause on a paused stopwatch is a
// no-op.
func (s *Stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.elapsed += s.clock.Now().Sub(s.startedAt)
	s.running = false
}

// Elapsed returns total time spent running.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.elapsed + s.clock.Now().Sub(s.startedAt)
	}
	return s.elapsed
}

// Timer is a Stopwatch with a limit and a one-shot expiry callback.
// Start (re)arms the callback for the currently remaining time; Pause
// disarms it. Once expired the callback never fires again.
type Timer struct {
	clock    clockwork.Clock
	limit    time.Duration
	onExpire func()

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	elapsed   time.Duration
	armed     clockwork.Timer
}

// NewTimer creates a paused timer with the full limit remaining. onExpire may
// be nil for a pure countdown.
func NewTimer(clock clockwork.Clock, limit time.Duration, onExpire func()) *Timer {
	return &Timer{clock: clock, limit: limit, onExpire: onExpire}
}

// Start resumes the countdown and arms the expiry callback for the remaining
// time. Idempotent while running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.startedAt = t.clock.Now()
	if t.onExpire != nil {
		t.armed = t.clock.AfterFunc(t.limit-t.elapsed, t.onExpire)
	}
}

// Pause freezes the countdown and cancels any pending expiry. Idempotent
// while paused.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.elapsed += t.clock.Now().Sub(t.startedAt)
	t.running = false
	if t.armed != nil {
		t.armed.Stop()
		t.armed = nil
	}
}

// Elapsed returns total time spent running.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.elapsed
	if t.running {
		e += t.clock.Now().Sub(t.startedAt)
	}
	return e
}

// Remaining returns the time left before expiry, floored at zero.
func (t *Timer) Remaining() time.Duration {
	r := t.limit - t.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}
