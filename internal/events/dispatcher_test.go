package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []EventType
	d.Subscribe(EventTransactionDelivered, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})
	d.Subscribe(EventTransactionCanceled, func(_ context.Context, e Event) error {
		t.Fatalf("unexpected event %s", e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTransactionDelivered}))
	assert.Equal(t, []EventType{EventTransactionDelivered}, got)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	calls := 0
	d.Subscribe(EventServiceCreated, func(context.Context, Event) error {
		calls++
		return errors.New("first failed")
	})
	d.Subscribe(EventServiceCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventServiceCreated}))
	assert.Equal(t, 2, calls)
}

func TestNilStreamPublisherIsNoop(t *testing.T) {
	p := NewStreamPublisher(nil, "stream")
	assert.Nil(t, p)

	id, err := p.Publish(context.Background(), Event{Type: EventServiceCreated})
	assert.NoError(t, err)
	assert.Empty(t, id)
}
