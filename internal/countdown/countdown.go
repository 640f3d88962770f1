// Package countdown implements the one-second countdowns that bound the
// interrogation round and the verdict window.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// Tick is the countdown cadence.
const Tick = time.Second

// Scheduler runs fn every d until the returned cancel is called. fn must be
// invoked on the same goroutine as every other caller of Timer, typically an
// event loop.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// Kind distinguishes the two countdowns of a session.
type Kind string

const (
	Round   Kind = "round"
	Verdict Kind = "verdict"
)

// Timer is a restartable countdown. At most one run is live at a time:
// Start force-stops the previous run, and ticks of a stopped run already
// queued on the scheduler are dropped.
type Timer struct {
	kind      Kind
	scheduler Scheduler

	mu        sync.Mutex
	gen       uint64
	remaining int
	running   bool
	cancel    func()
}

// New creates a stopped timer.
func New(kind Kind, scheduler Scheduler) *Timer {
	return &Timer{kind: kind, scheduler: scheduler}
}

// Kind returns the timer's kind.
func (t *Timer) Kind() Kind { return t.kind }

// Start begins counting down from seconds. onTick receives the remaining
// seconds after each decrement; onExpire fires exactly once, on the tick that
// reaches zero, after onTick. Either callback may be nil.
//
// A non-positive duration expires on the first tick.
func (t *Timer) Start(seconds int, onTick func(remaining int), onExpire func()) {
	t.Stop()

	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.remaining = max(seconds, 0)
	t.running = true
	t.mu.Unlock()

	cancel := t.scheduler.Every(Tick, func() { t.tick(gen, onTick, onExpire) })

	t.mu.Lock()
	if t.gen == gen && t.running {
		t.cancel = cancel
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	// stopped or restarted while scheduling
	cancel()
}

func (t *Timer) tick(gen uint64, onTick func(int), onExpire func()) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	expired := remaining == 0
	var cancel func()
	if expired {
		t.running = false
		cancel, t.cancel = t.cancel, nil
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if onTick != nil {
		onTick(remaining)
	}
	if expired && onExpire != nil {
		onExpire()
	}
}

// Stop cancels the current run without calling onExpire. It is idempotent
// and safe to call when a tick is already queued.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.gen++
	t.running = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Remaining returns the seconds left, never negative.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether a run is live.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Format renders seconds as MM:SS. Negative values render as 00:00.
func Format(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
