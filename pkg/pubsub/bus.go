// Package pubsub provides a minimal in-process broadcast bus. Subscribers
// receive no payload; a notification means "state changed, re-read it".
package pubsub

import "sync"

// Bus fans a notification out to all current subscribers. The zero value is
// not usable; construct with NewBus.
type Bus struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func())}
}

// Subscribe registers fn and returns a function that removes the
// subscription. Callers must invoke the returned function when done,
// otherwise the subscription leaks.
func (b *Bus) Subscribe(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish invokes every subscriber synchronously. Handlers are expected to be
// cheap: re-read a snapshot, update a counter. A subscriber added after
// Publish returns does not see the notification and must read current state
// on registration instead.
func (b *Bus) Publish() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
