package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/zapline/zapline/pkg/channels/gochannel"
	"github.com/zapline/zapline/pkg/channels/kafka"
	"github.com/zapline/zapline/pkg/eventbus"
	"github.com/zapline/zapline/pkg/events"
)

// NewEventBus builds the event bus for a service. Kafka is the production
// provider; "gochannel" exists for local single-process runs.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, events.Topic)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, events.Topic)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
