package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriberReceivesPublishedEvent(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{ID: "1", Type: EventInvocationStarted, Message: "started"})

	select {
	case evt := <-sub:
		require.Equal(t, EventInvocationStarted, evt.Type)
		require.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	require.False(t, open)
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	b.Publish(&Event{ID: "1", Type: EventImageLoaded})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case evt := <-sub:
			require.Equal(t, EventImageLoaded, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("a subscriber never received the event")
		}
	}
}
