// Package event defines all events published by the application layer.
// Events represent progress and state changes and are consumed by the
// presentation layer; the core never assumes how they are rendered.
package event

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// ItemEvent is an event that concerns a specific media item.
type ItemEvent interface {
	Event
	// ItemPath returns the media file path the event concerns
	ItemPath() string
}

// baseItemEvent provides common implementation for item events.
type baseItemEvent struct {
	path string
}

func (e *baseItemEvent) ItemPath() string {
	return e.path
}
