// Package debounce provides a keyed, cancellable task scheduler.
//
// At most one task is pending per key. Scheduling a key again cancels the
// earlier task and restarts the delay, so a burst of edits on one key
// collapses into a single run after the burst settles. Tasks for different
// keys are independent.
package debounce

import (
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/cartsync/internal/infrastructure/clock"
)

// DefaultDelay is the settle window used by the cart and checkout form.
const DefaultDelay = 500 * time.Millisecond

type task struct {
	fn    func()
	seq   uint64
	timer clock.Timer
}

// Scheduler runs keyed tasks after a fixed delay.
//
// Tasks run outside the scheduler's lock, so a task may call back into
// the scheduler.
type Scheduler struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	tasks   map[string]*task
	seq     uint64
	stopped bool
}

// New creates a scheduler. A nil clock uses the system clock.
func New(c clock.Clock, delay time.Duration) *Scheduler {
	if c == nil {
		c = clock.System()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		clock: c,
		delay: delay,
		tasks: make(map[string]*task),
	}
}

// Delay returns the settle window.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Schedule replaces any pending task for key with fn.
func (s *Scheduler) Schedule(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.tasks[key]; ok {
		old.timer.Stop()
	}

	s.seq++
	t := &task{fn: fn, seq: s.seq}
	s.tasks[key] = t
	t.timer = s.clock.AfterFunc(s.delay, func() { s.fire(key, t) })
}

// Cancel drops the pending task for key. It reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Flush runs every pending task now, in the order they were scheduled,
// and returns how many ran.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	pending := make([]*task, 0, len(s.tasks))
	for key, t := range s.tasks {
		t.timer.Stop()
		pending = append(pending, t)
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	for _, t := range pending {
		t.fn()
	}
	return len(pending)
}

// FlushKey runs the pending task for key now, if any.
func (s *Scheduler) FlushKey(key string) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if ok {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	if ok {
		t.fn()
	}
	return ok
}

// Pending reports whether key has a task waiting.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels everything and ignores later Schedule calls.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.stopped = true
}

func (s *Scheduler) fire(key string, t *task) {
	s.mu.Lock()
	if s.tasks[key] != t {
		// superseded or cancelled after the timer fired
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.mu.Unlock()

	t.fn()
}
