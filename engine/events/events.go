// Package events implements single-pass dispatch of engine events to
// front-end handlers. Handlers cannot emit into the pass they run in.
package events

import "github.com/nathoo/tinytalkers/types"

// Any subscribes a handler to every event type.
const Any = "*"

// Handler reacts to one event.
type Handler func(types.Event)

// Bus routes events to handlers by type.
type Bus struct {
	handlers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// On registers h for events of type typ, or for all events with Any.
func (b *Bus) On(typ string, h Handler) {
	b.handlers[typ] = append(b.handlers[typ], h)
}

// Dispatch runs matching handlers once per event, in registration order.
// Returns the number of handler calls made.
func (b *Bus) Dispatch(evts []types.Event) int {
	if b == nil {
		return 0
	}
	calls := 0
	for _, e := range evts {
		for _, h := range b.handlers[e.Type] {
			h(e)
			calls++
		}
		for _, h := range b.handlers[Any] {
			h(e)
			calls++
		}
	}
	return calls
}

// Filter returns the events of the given type.
func Filter(evts []types.Event, typ string) []types.Event {
	var out []types.Event
	for _, e := range evts {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// String reads a string field from event data.
func String(e types.Event, key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Int reads an int field from event data.
func Int(e types.Event, key string) int {
	n, _ := e.Data[key].(int)
	return n
}

// Bool reads a bool field from event data.
func Bool(e types.Event, key string) bool {
	v, _ := e.Data[key].(bool)
	return v
}
