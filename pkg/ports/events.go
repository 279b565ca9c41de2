package ports

import (
	"context"
	"time"
)

// EventType identifies the kind of an event
type EventType string

const (
	// EventTypeGraphUpdated is published after a refresh cycle publishes new documents
	EventTypeGraphUpdated EventType = "graph.updated"
)

// TopicGraphEvents is the topic graph lifecycle events are published on
const TopicGraphEvents = "graph.events"

// Event is a message carried by the event bus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler handles a single event
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes events to topics and fans them out to subscribers.
// Subscriptions end when the context passed to Subscribe is cancelled.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}
