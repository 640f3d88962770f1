package testutil

import (
	"context"
	"testing"

	"github.com/joeycumines/courtroom/internal/loop"
)

// NewEventLoop starts a real event loop that is stopped when the test ends.
func NewEventLoop(t testing.TB) *loop.EventLoop {
	t.Helper()
	l := loop.NewEventLoop()
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

// DrainUntil drains m until condition holds, waiting for jobs posted by
// background workers. It fails the test on timeout.
func DrainUntil(t testing.TB, m *loop.Manual, condition func() bool) {
	t.Helper()
	err := Poll(context.Background(), func() bool {
		m.Drain()
		return condition()
	}, DefaultTimeout, DefaultInterval)
	if err != nil {
		t.Fatalf("DrainUntil: %v", err)
	}
}
