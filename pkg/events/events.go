package events

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EstimateCreated  EventType = "estimate.created"
	EstimateRemoved  EventType = "estimate.removed"
	RoomCreated      EventType = "room.created"
	RoomRemoved      EventType = "room.removed"
	ProductAdded     EventType = "product.added"
	ProductReplaced  EventType = "product.replaced"
	ProductRemoved   EventType = "product.removed"
	StoreReloaded    EventType = "store.reloaded"
	CacheInvalidated EventType = "cache.invalidated"
	ModalOpened      EventType = "modal.opened"
	ModalClosed      EventType = "modal.closed"
)

// MutationTypes are the events that change backend state.
var MutationTypes = []EventType{
	EstimateCreated, EstimateRemoved,
	RoomCreated, RoomRemoved,
	ProductAdded, ProductReplaced, ProductRemoved,
	StoreReloaded,
}

// IsMutation reports whether t changes backend state.
func (t EventType) IsMutation() bool {
	for _, m := range MutationTypes {
		if m == t {
			return true
		}
	}
	return false
}

type Event struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	EstimateID string                 `json:"estimate_id,omitempty"`
	RoomID     string                 `json:"room_id,omitempty"`
	ProductID  string                 `json:"product_id,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

type Handler func(event Event)

// Publisher is the send side of the bus.
type Publisher interface {
	Publish(event Event)
}

// WorkerPoolConfig holds configuration for the event bus worker pool
type WorkerPoolConfig struct {
	WorkerCount int // Number of worker goroutines (default: CPU cores * 2)
	BufferSize  int // Channel buffer size (default: 256)
}

// DefaultWorkerPoolConfig returns the default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: runtime.NumCPU() * 2,
		BufferSize:  256,
	}
}

type eventTask struct {
	event   Event
	handler Handler
}

type EventBus struct {
	handlers   map[EventType][]Handler
	mu         sync.RWMutex
	workerPool chan eventTask
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	config     WorkerPoolConfig
	logger     *zap.Logger
}

func NewEventBus(logger *zap.Logger) *EventBus {
	return NewEventBusWithConfig(DefaultWorkerPoolConfig(), logger)
}

func NewEventBusWithConfig(config WorkerPoolConfig, logger *zap.Logger) *EventBus {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	eb := &EventBus{
		handlers:   make(map[EventType][]Handler),
		workerPool: make(chan eventTask, config.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		logger:     logger,
	}

	for i := 0; i < config.WorkerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}

	return eb
}

// worker processes events from the worker pool
func (eb *EventBus) worker() {
	defer eb.wg.Done()

	for {
		select {
		case task := <-eb.workerPool:
			eb.run(task)
		case <-eb.ctx.Done():
			return
		}
	}
}

func (eb *EventBus) run(task eventTask) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic",
				zap.String("event_type", string(task.event.Type)),
				zap.Any("panic", r))
		}
	}()
	task.handler(task.event)
}

func (eb *EventBus) Subscribe(eventType EventType, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers handler for every type in types.
func (eb *EventBus) SubscribeAll(types []EventType, handler Handler) {
	for _, t := range types {
		eb.Subscribe(t, handler)
	}
}

func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		task := eventTask{event: event, handler: handler}

		select {
		case eb.workerPool <- task:
		case <-eb.ctx.Done():
			return
		default:
			// pool saturated
			go eb.run(task)
		}
	}
}

// Shutdown gracefully shuts down the EventBus worker pool
func (eb *EventBus) Shutdown() {
	eb.cancel()
	eb.wg.Wait()
}
