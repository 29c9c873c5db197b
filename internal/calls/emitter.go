package calls

import "sync"

// Emitter is a small event bus for SDK adapters and test doubles.
// Handlers run synchronously on the emitting goroutine, outside the lock.
type Emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[EventType]map[int]Handler
}

func (e *Emitter) On(event EventType, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[EventType]map[int]Handler)
	}
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]Handler)
	}
	id := e.next
	e.next++
	e.handlers[event][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers[event], id)
			e.mu.Unlock()
		})
	}
}

func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	hs := make([]Handler, 0, len(e.handlers[ev.Type]))
	for _, h := range e.handlers[ev.Type] {
		hs = append(hs, h)
	}
	e.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Count returns the number of live handlers for event.
func (e *Emitter) Count(event EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
