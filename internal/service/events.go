package service

// EventType defines the type of event
type EventType string

const (
	EventTableValidated  EventType = "table_validated"
	EventTableConverted  EventType = "table_converted"
	EventSnapshotWritten EventType = "snapshot_written"
	EventSnapshotRestore EventType = "snapshot_restored"
	EventSnapshotDropped EventType = "snapshot_dropped"
)

// Event represents a completed table operation
type Event struct {
	Type    EventType      `json:"type"`
	Shape   string         `json:"shape"`
	Records int            `json:"records"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EventBus delivers events to subscribers synchronously, in subscription order
type EventBus struct {
	subscribers []func(Event)
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]func(Event), 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(fn func(Event)) {
	eb.subscribers = append(eb.subscribers, fn)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	for _, fn := range eb.subscribers {
		fn(event)
	}
}
