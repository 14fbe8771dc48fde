// Package eventbus provides event-driven communication between the outbox
// relay and the stage executor.
package eventbus

import (
	"context"

	"github.com/zapline/zapline/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	// Publish sends event to the given topic. The key becomes the partition
	// key, so all events sharing a key stay in order.
	Publish(ctx context.Context, topic, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler processes one decoded event. A nil return acknowledges the
// message (commits the offset); an error triggers redelivery.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
