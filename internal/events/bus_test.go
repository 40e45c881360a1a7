package events_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/events"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestSubscribeAndPublishSync(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	var got atomic.Int64
	bus.Subscribe(events.TypeMarketChange, func(ev events.Event) error {
		got.Add(1)
		if ev.EventType() != events.TypeMarketChange {
			t.Errorf("handler saw %q", ev.EventType())
		}
		return nil
	})

	bus.PublishSync(events.NewMarketChange(market.ConditionBullish, 10))
	bus.PublishSync(events.NewStarted(time.Second)) // different type: not delivered

	if got.Load() != 1 {
		t.Errorf("handler called %d times, want 1", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	var got atomic.Int64
	bus.SubscribeAll(func(ev events.Event) error {
		got.Add(1)
		return nil
	})

	bus.PublishSync(events.NewMarketChange(market.ConditionBearish, 1))
	bus.PublishSync(events.NewStarted(time.Second))

	if got.Load() != 2 {
		t.Errorf("handler called %d times, want 2", got.Load())
	}
}

func TestAsyncPublishDelivers(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	done := make(chan struct{})
	bus.Subscribe(events.TypeStarted, func(ev events.Event) error {
		close(done)
		return nil
	})

	bus.Publish(events.NewStarted(time.Second))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async event never delivered")
	}
}

func TestPanicRecovery(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	var after atomic.Bool
	bus.Subscribe(events.TypeStarted, func(ev events.Event) error {
		panic("boom")
	})
	bus.Subscribe(events.TypeStarted, func(ev events.Event) error {
		after.Store(true)
		return nil
	})

	bus.PublishSync(events.NewStarted(time.Second))

	if !after.Load() {
		t.Error("subscriber after panicking handler not invoked")
	}
	if bus.Stats().HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", bus.Stats().HandlerErrors)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	var got atomic.Int64
	sub := bus.Subscribe(events.TypeStarted, func(ev events.Event) error {
		got.Add(1)
		return nil
	})

	bus.PublishSync(events.NewStarted(time.Second))
	bus.Unsubscribe(sub)
	bus.PublishSync(events.NewStarted(time.Second))

	if got.Load() != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", got.Load())
	}
	if sub.IsActive() {
		t.Error("subscription still active after unsubscribe")
	}
}

func TestHandlerErrorCounted(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), events.DefaultBusConfig())
	defer bus.Close()

	bus.Subscribe(events.TypeStopped, func(ev events.Event) error {
		return errors.New("handler failure")
	})

	bus.PublishSync(events.NewStopped(0, decimal.Zero))

	stats := bus.Stats()
	if stats.HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", stats.HandlerErrors)
	}
	if stats.Published != 1 || stats.Processed != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
}
