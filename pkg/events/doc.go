/*
Package events provides an in-memory event broker for cirrus's pub/sub
notifications.

The broker fans out every published Event to every current subscriber over a
buffered channel; it is fire-and-forget (a full subscriber buffer skips rather
than blocks) and topic-agnostic — subscribers filter by Event.Type themselves.

Event types track the lifecycle the head controller drives invocations and
images through: EventFunctionRegistered, EventInvocationAdmitted,
EventInvocationStarted, EventInvocationComplete, EventInvocationFailed,
EventImageDownloaded, EventImageCopied, EventImageLoaded.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for evt := range sub {
			fmt.Println(evt.Type, evt.Message)
		}
	}()

	broker.Publish(&events.Event{ID: uuid.NewString(), Type: events.EventInvocationComplete})
*/
package events
