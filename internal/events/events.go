// Package events provides the in-process event bus used to stream run
// progress to subscribers (the websocket endpoint, log observers).
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of event on the bus.
type EventType string

const (
	// RunStarted fires when an evaluation run begins.
	RunStarted EventType = "run.started"
	// QueryCompleted fires after each golden query, pass or fail.
	QueryCompleted EventType = "query.completed"
	// RunCompleted fires when the run's summary is final.
	RunCompleted EventType = "run.completed"
	// GateEvaluated fires with the gate decision.
	GateEvaluated EventType = "gate.evaluated"
)

// EventData is the interface all event payloads implement. It keeps
// payloads type-safe while letting the bus carry any event kind.
type EventData interface {
	EventType() EventType
}

// Event is a timestamped payload on the bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// Bus is a small fan-out pub/sub. Publishing never blocks: a subscriber
// that falls behind misses events rather than stalling the run.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
	}
}

// Subscribe registers a subscriber. The returned cancel function must be
// called when done; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(data EventData) {
	evt := Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber is behind; drop rather than stall the run.
		}
	}
}
