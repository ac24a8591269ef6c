package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to typed and wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		typed := newTestHandler("OrderCreated")
		other := newTestHandler("OrderCancelled")
		all := newTestHandler()
		bus.Subscribe(typed)
		bus.Subscribe(other)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCreated"), newTestEvent("Other")))
		assert.Equal(t, 1, typed.count())
		assert.Equal(t, 0, other.count())
		assert.Equal(t, 2, all.count())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("A")
		bus.Subscribe(h, "B")

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
		assert.Equal(t, 1, h.count())
	})

	t.Run("a failing or panicking handler does not stop the others", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))

		failing := newTestHandler("E")
		failing.err = errors.New("handler error")
		panicking := newTestHandler("E")
		panicking.panics = true
		ok := newTestHandler("E")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, int64(2), bus.Failures())
		assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("E")
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), newTestEvent("E"))
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), newTestEvent("E"))

	assert.Equal(t, 1, h.count())
	assert.Empty(t, bus.handlersFor("E"))
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("E")
	bus.Subscribe(h, "E", "F")
	assert.Equal(t, 1, bus.HandlerCount())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("F")))
	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, 1, h.count())
}

func TestJournalHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewJournalHandler(zap.New(core))
	assert.Nil(t, h.EventTypes())

	ev := newTestEvent("BatchReceived")
	require.NoError(t, h.Handle(context.Background(), ev))

	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "BatchReceived", fields["event_type"])
	assert.Contains(t, fields["payload"], `"data":"test data"`)
}
