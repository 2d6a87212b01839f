package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Recorder keeps published events in memory. Tests use it to assert on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []Message
	Err    error
}

func (r *Recorder) Publish(_ context.Context, eventType string, data any) error {
	if r.Err != nil {
		return r.Err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Message{Type: eventType, Data: raw})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the routing keys published so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Last returns the most recent message of eventType.
func (r *Recorder) Last(eventType string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return Message{}, false
}
