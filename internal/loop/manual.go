package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Loop for tests. Nothing runs until the test
// calls Drain or Advance, and time only moves through Advance. Post may be
// called from any goroutine.
type Manual struct {
	mu        sync.Mutex
	now       time.Duration
	queue     []func()
	intervals []*manualInterval
	nextID    int
	stopped   bool
}

type manualInterval struct {
	id       int
	every    time.Duration
	next     time.Duration
	fn       func()
	canceled bool
}

// NewManual creates a manual loop at time zero.
func NewManual() *Manual { return &Manual{} }

// Post implements Loop.
func (m *Manual) Post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.queue = append(m.queue, fn)
	return true
}

// Every implements Loop.
func (m *Manual) Every(d time.Duration, fn func()) func() {
	if d <= 0 {
		d = time.Millisecond
	}
	m.mu.Lock()
	m.nextID++
	iv := &manualInterval{id: m.nextID, every: d, next: m.now + d, fn: fn}
	m.intervals = append(m.intervals, iv)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		iv.canceled = true
		m.mu.Unlock()
	}
}

// Stop makes further Posts fail.
func (m *Manual) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Now returns the simulated time elapsed.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued jobs.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Active returns the number of live intervals.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, iv := range m.intervals {
		if !iv.canceled {
			n++
		}
	}
	return n
}

// Drain runs queued jobs, including jobs they queue, until the queue is
// empty. It returns the number of jobs run.
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves time forward by d, firing due intervals in time order and
// draining the queue after each firing.
func (m *Manual) Advance(d time.Duration) {
	m.Drain()
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		iv := m.nextDue(target)
		if iv == nil {
			m.now = target
			m.mu.Unlock()
			m.Drain()
			return
		}
		m.now = iv.next
		iv.next += iv.every
		fn := iv.fn
		m.mu.Unlock()
		fn()
		m.Drain()
	}
}

// nextDue must be called with m.mu held.
func (m *Manual) nextDue(target time.Duration) *manualInterval {
	live := m.intervals[:0]
	for _, iv := range m.intervals {
		if !iv.canceled {
			live = append(live, iv)
		}
	}
	m.intervals = live
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].next != live[j].next {
			return live[i].next < live[j].next
		}
		return live[i].id < live[j].id
	})
	if len(live) == 0 || live[0].next > target {
		return nil
	}
	return live[0]
}

var _ Loop = (*Manual)(nil)
