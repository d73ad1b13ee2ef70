package bus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bus fans events out to subscribers in process. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event, and the miss
// is counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	next    int
	dropped atomic.Uint64
}

type subscription struct {
	prefix string
	kinds  []string
	ch     chan Event
}

// matches reports whether the subscription wants events of kind. A kinds
// list is an exact match; otherwise prefix is a namespace and "" matches
// everything.
func (s *subscription) matches(kind string) bool {
	if len(s.kinds) > 0 {
		for _, k := range s.kinds {
			if k == kind {
				return true
			}
		}
		return false
	}
	return strings.HasPrefix(kind, s.prefix)
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Publish delivers evt to every matching subscriber.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.matches(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Emit publishes an event of the given kind stamped with the current time.
func (b *Bus) Emit(kind string, payload any) {
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe returns a channel of events whose kind starts with namespace,
// buffered to bufSize, and a function that cancels the subscription.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	return b.add(&subscription{prefix: namespace, ch: make(chan Event, bufSize)})
}

// SubscribeKinds is like Subscribe but only receives the listed kinds.
func (b *Bus) SubscribeKinds(bufSize int, kinds ...string) (<-chan Event, func()) {
	return b.add(&subscription{kinds: kinds, ch: make(chan Event, bufSize)})
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) add(sub *subscription) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
