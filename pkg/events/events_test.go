package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestEventBusCreation tests creating a new event bus
func TestEventBusCreation(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Shutdown()
	require.NotNil(t, bus)
	assert.NotNil(t, bus.handlers)
}

// TestEventSubscription tests subscribing to events
func TestEventSubscription(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Shutdown()

	received := make(chan Event, 1)
	bus.Subscribe(ProductAdded, func(e Event) { received <- e })

	bus.Publish(Event{
		Type:       ProductAdded,
		EstimateID: "e1",
		RoomID:     "r1",
		ProductID:  "oak",
		Data:       map[string]interface{}{"quantity": 1},
	})

	select {
	case e := <-received:
		assert.Equal(t, ProductAdded, e.Type)
		assert.Equal(t, "e1", e.EstimateID)
		assert.Equal(t, "oak", e.ProductID)
		assert.Equal(t, 1, e.Data["quantity"])
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

// TestSubscribeAll tests one handler receiving several event types
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Shutdown()

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := map[EventType]int{}
	wg.Add(len(MutationTypes))
	bus.SubscribeAll(MutationTypes, func(e Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
		wg.Done()
	})

	for _, typ := range MutationTypes {
		bus.Publish(Event{Type: typ})
	}
	bus.Publish(Event{Type: ModalOpened})

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, len(MutationTypes))
	assert.Zero(t, seen[ModalOpened])
}

// TestHandlerPanicRecovery tests the bus keeps running after a panicking handler
func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewEventBusWithConfig(WorkerPoolConfig{WorkerCount: 1, BufferSize: 4}, nil)
	defer bus.Shutdown()

	done := make(chan struct{})
	bus.Subscribe(RoomCreated, func(Event) { panic("boom") })
	bus.Subscribe(RoomRemoved, func(Event) { close(done) })

	bus.Publish(Event{Type: RoomCreated})
	bus.Publish(Event{Type: RoomRemoved})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
}

// TestIsMutation tests classification of event types
func TestIsMutation(t *testing.T) {
	assert.True(t, ProductReplaced.IsMutation())
	assert.True(t, StoreReloaded.IsMutation())
	assert.False(t, ModalClosed.IsMutation())
	assert.False(t, CacheInvalidated.IsMutation())
}

// TestShutdownStopsWorkers tests no goroutines outlive Shutdown
func TestShutdownStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewEventBusWithConfig(WorkerPoolConfig{WorkerCount: 3, BufferSize: 1}, nil)
	bus.Shutdown()
}
