// Package loop provides the single-threaded cooperative scheduler that owns
// all game state. Every state transition and UI-facing callback runs on the
// loop goroutine; other goroutines hand work to it with Post.
package loop

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/joeycumines/courtroom/internal/goroutineid"
)

// Loop is the scheduling surface the game depends on.
type Loop interface {
	// Post queues fn to run on the loop goroutine. It returns false if the
	// loop is not running.
	Post(fn func()) bool
	// Every runs fn on the loop goroutine every d until cancel is called.
	Every(d time.Duration, fn func()) (cancel func())
}

var (
	// ErrNotRunning is returned by Sync when the loop is stopped.
	ErrNotRunning = errors.New("event loop not running")
	// ErrOnLoop is returned by Sync when called from the loop goroutine.
	ErrOnLoop = errors.New("called from the event loop goroutine")
)

// EventLoop runs jobs on a goja_nodejs event loop. No JavaScript is
// executed; the loop is used purely for its job queue and timers, which
// serialize every callback onto one goroutine.
type EventLoop struct {
	loop *eventloop.EventLoop

	mu      sync.RWMutex
	started bool
	stopped bool

	// goroutine ID of the loop, set by its first job
	owner atomic.Int64
}

// NewEventLoop creates a stopped loop.
func NewEventLoop() *EventLoop {
	return &EventLoop{
		loop: eventloop.NewEventLoop(eventloop.EnableConsole(false)),
	}
}

// Start runs the loop in a background goroutine. It is a no-op after the
// first call.
func (l *EventLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true
	l.loop.Start()
	l.loop.RunOnLoop(func(*goja.Runtime) { l.owner.Store(goroutineid.Get()) })
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *EventLoop) OnLoop() bool {
	id := l.owner.Load()
	return id != 0 && id == goroutineid.Get()
}

// Stop halts the loop, waiting for the running job to finish. Called from a
// job, it returns at once and the loop halts after that job. Safe to call
// multiple times.
func (l *EventLoop) Stop() {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.stopped = true
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	if l.OnLoop() {
		go l.loop.Stop()
		return
	}
	l.loop.Stop()
}

// Running reports whether the loop accepts jobs.
func (l *EventLoop) Running() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started && !l.stopped
}

// Post implements Loop.
func (l *EventLoop) Post(fn func()) bool {
	if !l.Running() {
		return false
	}
	return l.loop.RunOnLoop(func(*goja.Runtime) { fn() })
}

// Every implements Loop.
func (l *EventLoop) Every(d time.Duration, fn func()) func() {
	interval := l.loop.SetInterval(func(*goja.Runtime) { fn() }, d)
	var once sync.Once
	return func() {
		once.Do(func() { l.loop.ClearInterval(interval) })
	}
}

// Sync runs fn on the loop and waits for it to return. It fails with
// ErrOnLoop rather than deadlock when called from a job.
func (l *EventLoop) Sync(fn func()) error {
	if l.OnLoop() {
		return ErrOnLoop
	}
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrNotRunning
	}
	<-done
	return nil
}

var _ Loop = (*EventLoop)(nil)
