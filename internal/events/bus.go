// Package events fans store state changes out to subscribers.
package events

import (
	"sort"
	"sync"
	"time"
)

type EventPayload map[string]any

// Event describes one state change published by a store.
type Event struct {
	Seq      uint64       `json:"seq"`
	TS       time.Time    `json:"ts"`
	Type     string       `json:"type"`
	Store    string       `json:"store"`
	EntityID int64        `json:"entity_id,omitempty"`
	Payload  EventPayload `json:"payload,omitempty"`
}

type Handler func(Event)

// Bus delivers events synchronously, in subscription order, on the
// publishing goroutine. The zero value is ready to use.
type Bus struct {
	Now func() time.Time

	mu       sync.Mutex
	seq      uint64
	nextID   int
	handlers map[int]Handler
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = map[int]Handler{}
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Append stamps an event and hands it to every current subscriber.
func (b *Bus) Append(evtType, store string, entityID int64, payload EventPayload) Event {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	b.mu.Lock()
	b.seq++
	evt := Event{
		Seq:      b.seq,
		TS:       now().UTC(),
		Type:     evtType,
		Store:    store,
		EntityID: entityID,
		Payload:  payload,
	}
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
	return evt
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
