package pubsub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	first, second := 0, 0
	bus.Subscribe(func() { first++ })
	bus.Subscribe(func() { second++ })

	bus.Publish()
	bus.Publish()

	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(func() { calls++ })

	bus.Publish()
	unsubscribe()
	bus.Publish()

	assert.Equal(t, 1, calls)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	unsubscribe := bus.Subscribe(func() {})

	unsubscribe()
	assert.NotPanics(t, func() { unsubscribe() })
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { NewBus().Publish() })
}

func TestBus_SubscriberMayResubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	var unsubscribe func()
	calls := 0
	unsubscribe = bus.Subscribe(func() {
		calls++
		unsubscribe()
		bus.Subscribe(func() { calls += 10 })
	})

	// the handler mutates the subscriber set; Publish iterates a copy
	assert.NotPanics(t, func() { bus.Publish() })
	assert.Equal(t, 1, calls)

	bus.Publish()
	assert.Equal(t, 11, calls)
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := bus.Subscribe(func() {
				mu.Lock()
				total++
				mu.Unlock()
			})
			defer unsubscribe()
			bus.Publish()
		}()
		go func() {
			defer wg.Done()
			bus.Publish()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, total)
}
