package accountstest

import (
	"context"
	"sync"

	"gamelog/services/accounts"
)

// Events records emitted account events.
type Events struct {
	mu     sync.Mutex
	events []accounts.Event

	// Err, when set, is returned from Emit after the event is recorded.
	Err error
}

func (e *Events) Emit(_ context.Context, event accounts.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.Err
}

// Types returns the recorded event types in order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

// All returns a copy of the recorded events.
func (e *Events) All() []accounts.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]accounts.Event(nil), e.events...)
}
