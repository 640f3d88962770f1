package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultQueueSize bounds the pending jobs per key.
const DefaultQueueSize = 8

var (
	// ErrQueueFull is returned when a key already has QueueSize pending jobs.
	ErrQueueFull = errors.New("dispatcher queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Job runs on a dispatcher worker.
type Job func(ctx context.Context)

// Request is a chat completion to run on a worker.
type Request struct {
	Messages []Message
	Model    ModelConfig
	// Before runs on the worker ahead of the backend call, for I/O that
	// must complete first.
	Before func(ctx context.Context)
	// Done receives the result on the event loop.
	Done func(Message, error)
}

// Dispatcher is the outbound request queue. Each key (one per persona
// conversation, plus one for verdict scoring) gets a lazily started worker
// goroutine that runs its jobs strictly in submission order; different keys
// run concurrently.
type Dispatcher struct {
	backend   ChatBackend
	post      func(func()) bool
	logger    *slog.Logger
	queueSize int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	workers map[string]chan Job
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the per-key queue bound.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queueSize = max(n, 1) }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher. post delivers completion callbacks to
// the event loop.
func NewDispatcher(backend ChatBackend, post func(func()) bool, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		backend:   backend,
		post:      post,
		logger:    slog.Default(),
		queueSize: DefaultQueueSize,
		ctx:       ctx,
		cancel:    cancel,
		workers:   make(map[string]chan Job),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do queues job on key's worker without blocking.
func (d *Dispatcher) Do(key string, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	ch, ok := d.workers[key]
	if !ok {
		ch = make(chan Job, d.queueSize)
		d.workers[key] = ch
		d.wg.Add(1)
		go d.work(key, ch)
	}
	select {
	case ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Complete queues a chat completion on key's worker. req.Done is posted to
// the event loop with the reply or a *Error.
func (d *Dispatcher) Complete(key string, req Request) error {
	return d.Do(key, func(ctx context.Context) {
		if req.Before != nil {
			req.Before(ctx)
		}
		msg, err := d.backend.Complete(ctx, req.Messages, req.Model)
		if err != nil {
			var be *Error
			if !errors.As(err, &be) {
				err = &Error{Op: "complete", Err: err}
			}
		} else if msg.Content == "" {
			err = &Error{Op: "complete", Err: ErrEmptyResponse}
		}
		if req.Done == nil {
			return
		}
		if !d.post(func() { req.Done(msg, err) }) {
			d.logger.Debug("dropped backend result, event loop stopped", "key", key)
		}
	})
}

func (d *Dispatcher) work(key string, jobs <-chan Job) {
	defer d.wg.Done()
	for job := range jobs {
		d.run(key, job)
	}
}

func (d *Dispatcher) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher job panicked", "key", key, "panic", r)
		}
	}()
	job(d.ctx)
}

// Close stops accepting jobs, waits for queued jobs to finish and stops the
// workers. Cancel ctx to abandon in-flight backend calls.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
