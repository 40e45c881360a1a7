package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Handler processes a single event.
type Handler func(event Event) error

// Filter can selectively process events.
type Filter func(event Event) bool

// SubscriptionOptions configures subscription behavior.
type SubscriptionOptions struct {
	Filter Filter // optional
	Async  bool   // run the handler in its own goroutine
}

// Subscription represents an active subscription.
type Subscription struct {
	ID      int64
	Type    Type
	Handler Handler
	Options SubscriptionOptions
	active  atomic.Bool
}

// IsActive reports whether the subscription still receives events.
func (s *Subscription) IsActive() bool { return s.active.Load() }

// BusStats tracks bus counters.
type BusStats struct {
	Published         int64 `json:"published"`
	Processed         int64 `json:"processed"`
	Dropped           int64 `json:"dropped"`
	HandlerErrors     int64 `json:"handlerErrors"`
	ActiveSubscribers int64 `json:"activeSubscribers"`
}

// Bus routes simulator events to subscribers. Publishing never blocks the
// tick pipeline: events are queued on a buffered channel and drained by
// worker goroutines; a full buffer drops the event and counts it.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]*Subscription
	allSubs     []*Subscription

	eventChan chan Event

	published     atomic.Int64
	processed     atomic.Int64
	dropped       atomic.Int64
	handlerErrors atomic.Int64
	activeSubs    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

// BusConfig configures the bus.
type BusConfig struct {
	Workers    int `json:"workers"`
	BufferSize int `json:"bufferSize"`
}

// DefaultBusConfig returns sensible defaults for one engine's traffic.
func DefaultBusConfig() BusConfig {
	return BusConfig{Workers: 4, BufferSize: 4096}
}

// NewBus creates a bus and starts its workers.
func NewBus(logger *zap.Logger, config BusConfig) *Bus {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subscribers: make(map[Type][]*Subscription),
		eventChan:   make(chan Event, config.BufferSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("bus"),
	}

	for i := 0; i < config.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.eventChan:
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	subs := b.subscribers[event.EventType()]
	allSubs := b.allSubs
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
	for _, sub := range allSubs {
		b.deliver(sub, event)
	}

	b.processed.Add(1)
}

func (b *Bus) deliver(sub *Subscription, event Event) {
	if !sub.active.Load() {
		return
	}
	if sub.Options.Filter != nil && !sub.Options.Filter(event) {
		return
	}

	if sub.Options.Async {
		go b.executeHandler(sub, event)
	} else {
		b.executeHandler(sub, event)
	}
}

// executeHandler runs a handler with panic recovery so one faulty
// subscriber cannot take down the bus.
func (b *Bus) executeHandler(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerErrors.Add(1)
			b.logger.Error("event handler panic",
				zap.Int64("subscription", sub.ID),
				zap.String("event_type", string(event.EventType())),
				zap.Any("panic", r))
		}
	}()

	if err := sub.Handler(event); err != nil {
		b.handlerErrors.Add(1)
		b.logger.Warn("event handler error",
			zap.Int64("subscription", sub.ID),
			zap.String("event_type", string(event.EventType())),
			zap.Error(err))
	}
}

var subscriptionCounter atomic.Int64

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType Type, handler Handler, opts ...SubscriptionOptions) *Subscription {
	sub := b.newSubscription(eventType, handler, opts)

	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	b.mu.Unlock()

	b.activeSubs.Add(1)
	return sub
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler, opts ...SubscriptionOptions) *Subscription {
	sub := b.newSubscription("*", handler, opts)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()

	b.activeSubs.Add(1)
	return sub
}

func (b *Bus) newSubscription(eventType Type, handler Handler, opts []SubscriptionOptions) *Subscription {
	options := SubscriptionOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}

	sub := &Subscription{
		ID:      subscriptionCounter.Add(1),
		Type:    eventType,
		Handler: handler,
		Options: options,
	}
	sub.active.Store(true)
	return sub
}

// Unsubscribe deactivates a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub.active.CompareAndSwap(true, false) {
		b.activeSubs.Add(-1)
	}
}

// Publish queues an event without blocking. Events are dropped (and
// counted) if the buffer is full.
func (b *Bus) Publish(event Event) {
	select {
	case b.eventChan <- event:
		b.published.Add(1)
	default:
		b.dropped.Add(1)
		b.logger.Warn("event dropped, buffer full",
			zap.String("event_type", string(event.EventType())))
	}
}

// PublishSync dispatches an event inline and returns after all non-async
// handlers have run.
func (b *Bus) PublishSync(event Event) {
	b.published.Add(1)
	b.dispatch(event)
}

// Stats returns current bus counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		Published:         b.published.Load(),
		Processed:         b.processed.Load(),
		Dropped:           b.dropped.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		ActiveSubscribers: b.activeSubs.Load(),
	}
}

// Close shuts the bus down, waiting briefly for workers to drain.
func (b *Bus) Close() {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		b.logger.Warn("bus shutdown timed out")
	}
}
