package identity

import "sync"

// EventBus fans auth-state-change events out to subscribers. Providers own a
// bus and publish on sign-in, sign-out, and refresh. Delivery is best-effort:
// a lagging subscriber loses events instead of blocking the provider.
type EventBus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and
// closes the channel.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to all current subscribers without blocking.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
