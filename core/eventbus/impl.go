package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"tokpost-go/core/event"
)

// subscription represents a single event subscription.
type subscription struct {
	id      string
	handler EventHandler
	path    string // Empty string means subscribe to all events
}

// channelEventBus is a channel-based implementation of EventBus.
type channelEventBus struct {
	eventChan     chan event.Event
	subscriptions map[string]*subscription
	mu            sync.RWMutex
	closed        atomic.Bool
	wg            sync.WaitGroup
	nextID        atomic.Uint64
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	bus := &channelEventBus{
		eventChan:     make(chan event.Event, bufferSize),
		subscriptions: make(map[string]*subscription),
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish publishes an event to all subscribers.
func (b *channelEventBus) Publish(e event.Event) {
	if b.closed.Load() {
		return
	}

	// Non-blocking send; a full buffer drops the event rather than stalling
	// the upload flow behind a slow renderer.
	select {
	case b.eventChan <- e:
	default:
	}
}

// Subscribe subscribes to all events.
func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

// SubscribeItem subscribes to events for a specific media item.
func (b *channelEventBus) SubscribeItem(path string, handler EventHandler) string {
	return b.subscribe(path, handler)
}

func (b *channelEventBus) subscribe(path string, handler EventHandler) string {
	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))

	b.mu.Lock()
	b.subscriptions[id] = &subscription{
		id:      id,
		handler: handler,
		path:    path,
	}
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subscriptions, subscriptionID)
	b.mu.Unlock()
}

// flushMarker is an internal event used to detect when the dispatch loop has
// drained everything queued ahead of it.
type flushMarker struct {
	done chan struct{}
}

func (flushMarker) EventName() string { return "flush" }

// Flush blocks until all previously published events have been delivered.
// The marker is sent blocking so it queues behind every pending event.
func (b *channelEventBus) Flush() {
	if b.closed.Load() {
		return
	}
	marker := flushMarker{done: make(chan struct{})}
	b.eventChan <- marker
	<-marker.done
}

// Close shuts down the event bus.
func (b *channelEventBus) Close() {
	if b.closed.Swap(true) {
		return // Already closed
	}

	close(b.eventChan)
	b.wg.Wait()
}

// dispatch is the main event dispatch loop.
func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.eventChan {
		if m, ok := e.(flushMarker); ok {
			close(m.done)
			continue
		}
		b.deliverEvent(e)
	}
}

// deliverEvent delivers an event to all matching subscribers.
func (b *channelEventBus) deliverEvent(e event.Event) {
	b.mu.RLock()
	// Copy subscriptions to avoid holding lock during handler execution
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	// Get item path if this is an item event
	var eventPath string
	if ie, ok := e.(event.ItemEvent); ok {
		eventPath = ie.ItemPath()
	}

	for _, sub := range subs {
		// Filter by item path if subscription is item-specific
		if sub.path != "" {
			if eventPath == "" || sub.path != eventPath {
				continue
			}
		}

		// Call handler (catch panics so one bad handler cannot affect others)
		func() {
			defer func() {
				if r := recover(); r != nil {
					_ = r
				}
			}()
			sub.handler(e)
		}()
	}
}
