package events

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

// Listener receives published events. It runs synchronously on the publisher's goroutine.
type Listener func(Event)

// Subscription identifies one registered listener so it can be removed later.
type Subscription struct {
	id       uint64
	kind     EventKind
	listener Listener
	once     bool
}

// Kind the subscription was registered for.
func (s *Subscription) Kind() EventKind {
	return s.kind
}

// Bus is the process-wide publish/subscribe channel for auction lifecycle events. It is built
// once at startup and shared by every auction cycle. All methods are safe for concurrent use.
type Bus struct {
	clock clock.Clock

	mu        sync.Mutex
	nextID    uint64
	listeners map[EventKind][]*Subscription
}

// NewBus builds an empty Bus which stamps events with the given clock.
func NewBus(c clock.Clock) *Bus {
	if c == nil {
		c = clock.New()
	}
	return &Bus{
		clock:     c,
		listeners: make(map[EventKind][]*Subscription),
	}
}

// Publish notifies every listener registered for kind, in registration order, and reports
// whether there was at least one. A panicking listener is recovered and republished as Error;
// the remaining listeners still run.
func (b *Bus) Publish(kind EventKind, data interface{}) bool {
	event := Event{
		Timestamp: b.clock.Now(),
		Type:      kind,
		Data:      data,
	}

	subs := b.take(kind)
	for _, sub := range subs {
		b.notify(sub, event)
	}
	return len(subs) > 0
}

// Subscribe registers listener for every future event of the given kind.
func (b *Bus) Subscribe(kind EventKind, listener Listener) *Subscription {
	return b.add(kind, listener, false)
}

// SubscribeOnce registers listener for the next event of the given kind only.
func (b *Bus) SubscribeOnce(kind EventKind, listener Listener) *Subscription {
	return b.add(kind, listener, true)
}

// SubscribeAll registers listener for every kind in the taxonomy.
func (b *Bus) SubscribeAll(listener Listener) []*Subscription {
	kinds := Kinds()
	subs := make([]*Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, b.Subscribe(kind, listener))
	}
	return subs
}

// Unsubscribe removes sub from kind. A nil sub removes every listener of that kind.
func (b *Bus) Unsubscribe(kind EventKind, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub == nil {
		delete(b.listeners, kind)
		return
	}
	b.listeners[kind] = without(b.listeners[kind], sub.id)
}

// Subscribers returns a copy of the listeners currently registered for kind.
func (b *Bus) Subscribers(kind EventKind) []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[kind]
	listeners := make([]Listener, 0, len(subs))
	for _, sub := range subs {
		listeners = append(listeners, sub.listener)
	}
	return listeners
}

func (b *Bus) add(kind EventKind, listener Listener, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:       b.nextID,
		kind:     kind,
		listener: listener,
		once:     once,
	}
	b.listeners[kind] = append(b.listeners[kind], sub)
	return sub
}

// take snapshots the listeners for kind and drops once-listeners from the live set, so a
// concurrent publish can never deliver to them a second time.
func (b *Bus) take(kind EventKind) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[kind]
	if len(current) == 0 {
		return nil
	}

	snapshot := make([]*Subscription, len(current))
	copy(snapshot, current)

	remaining := current[:0:0]
	for _, sub := range current {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	b.listeners[kind] = remaining

	return snapshot
}

func (b *Bus) notify(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			glog.Errorf("Event listener for %q recovered panic: %v. Stack trace is: %v", event.Type, r, stack)
			if event.Type == Error {
				return
			}
			b.Publish(Error, NewErrorData(fmt.Errorf("listener for %q panicked: %v", event.Type, r)))
		}
	}()
	sub.listener(event)
}

func without(subs []*Subscription, id uint64) []*Subscription {
	remaining := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.id != id {
			remaining = append(remaining, sub)
		}
	}
	return remaining
}
