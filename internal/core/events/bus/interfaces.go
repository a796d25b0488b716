package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus the engine uses to
// announce lifecycle changes (entity deletion, asset completion, prefab
// instantiation) to interested listeners outside the dispatcher graph.
//
// Delivery is synchronous in the publisher's goroutine. Asset events are
// published from loader workers and processor systems, so handlers must be
// safe for concurrent use and must not block.
type EventBus interface {
	// Publish delivers the event to every active subscriber of event.Type().
	// Handler errors are joined and returned.
	Publish(event Event) error
	// PublishAsync publishes on a new goroutine; the channel yields the
	// joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error
	// PublishBatch publishes events in order and joins all errors.
	PublishBatch(events ...Event) error
	// Subscribe registers handler for eventType.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. Nil is accepted.
	Unsubscribe(sub Subscription) error
	// Subscribers reports how many active handlers listen to eventType.
	Subscribers(eventType string) int
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	EventHandler func(event Event) error
	// EventFilter decides whether an event should be delivered.
	EventFilter func(event Event) bool
)

// Subscription is a handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel removes the handler from the bus. Multiple calls are safe.
	Cancel() error
}
