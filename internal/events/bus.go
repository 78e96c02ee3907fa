// Package events fans run progress out to any number of listeners.
// Slow listeners lose their oldest events instead of blocking the producer.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is implemented by everything published on a Bus.
type Event interface {
	EventType() string
	Timestamp() time.Time
	ExecutionID() string
}

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	Type      string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	Execution string    `json:"execution_id"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) ExecutionID() string  { return e.Execution }

// NewBaseEvent stamps an event of eventType for executionID.
func NewBaseEvent(eventType, executionID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Time:      time.Now(),
		Execution: executionID,
	}
}

type subscriber struct {
	ch    chan Event
	types map[string]bool // empty means all
}

// Bus is a pub/sub hub with per-subscriber ring buffers.
type Bus struct {
	mu           sync.RWMutex
	subscribers  []*subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

// New creates a Bus whose subscriptions buffer bufferSize events.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving events of the given types, or all
// events when no type is named. The channel is closed by Unsubscribe or Close.
func (b *Bus) Subscribe(types ...string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{
		ch:    make(chan Event, b.bufferSize),
		types: make(map[string]bool, len(types)),
	}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	for _, t := range types {
		sub.types[t] = true
	}
	b.subscribers = append(b.subscribers, sub)
	return sub.ch
}

// Unsubscribe removes and closes a subscription.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	b.subscribers = kept
}

// Publish delivers event to every matching subscriber without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	eventType := event.EventType()
	for _, sub := range b.subscribers {
		if len(sub.types) > 0 && !sub.types[eventType] {
			continue
		}
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-sub.ch:
			atomic.AddInt64(&b.droppedCount, 1)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			atomic.AddInt64(&b.droppedCount, 1)
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// DroppedCount returns the total number of dropped events.
func (b *Bus) DroppedCount() int64 {
	return atomic.LoadInt64(&b.droppedCount)
}

// Close closes the bus and every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = nil
}
