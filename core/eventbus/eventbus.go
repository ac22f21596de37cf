// Package eventbus provides the event bus for publishing and subscribing to events.
package eventbus

import (
	"tokpost-go/core/event"
)

// EventBus is the interface for the event bus.
type EventBus interface {
	// Publish publishes an event to all subscribers.
	// This method is non-blocking; events are queued for async dispatch.
	Publish(e event.Event)

	// Subscribe subscribes to all events.
	// Returns a subscription ID that can be used to unsubscribe.
	Subscribe(handler EventHandler) string

	// SubscribeItem subscribes to events for a specific media item.
	// Only events implementing ItemEvent with a matching path will be delivered.
	// Returns a subscription ID that can be used to unsubscribe.
	SubscribeItem(path string, handler EventHandler) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Flush blocks until every event published before the call has been
	// delivered to its subscribers. No-op on a closed bus.
	Flush()

	// Close shuts down the event bus and releases resources.
	// After Close is called, Publish will be a no-op.
	Close()
}

// EventHandler is a function that handles an event.
type EventHandler func(e event.Event)
