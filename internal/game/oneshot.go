package game

import "sync"

// OneShot tracks flags that may each be consumed exactly once per session,
// such as a persona's flashback or a clue's first inspection. The zero value
// is ready to use.
type OneShot struct {
	mu       sync.Mutex
	consumed map[string]struct{}
}

// TryConsume consumes id and reports whether this call was the first.
func (o *OneShot) TryConsume(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.consumed[id]; ok {
		return false
	}
	if o.consumed == nil {
		o.consumed = make(map[string]struct{})
	}
	o.consumed[id] = struct{}{}
	return true
}

// Consumed reports whether id has been consumed.
func (o *OneShot) Consumed(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.consumed[id]
	return ok
}

// Reset makes every flag consumable again.
func (o *OneShot) Reset() {
	o.mu.Lock()
	o.consumed = nil
	o.mu.Unlock()
}
