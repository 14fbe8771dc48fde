package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/zapline/zapline/pkg/channels/kafka"
	"github.com/zapline/zapline/pkg/eventbus"
	"github.com/zapline/zapline/pkg/events"
)

func setupKafkaBroker(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed Kafka test in short mode")
	}

	ctx := context.Background()

	kafkaContainer, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	testcontainers.CleanupContainer(t, kafkaContainer)
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	admin, err := sarama.NewClusterAdmin([]string{broker}, config)
	require.NoError(t, err)

	defer func() { require.NoError(t, admin.Close()) }()

	err = admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false)
	require.NoError(t, err)
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := kafka.CreateChannel(watermill.NopLogger{}, "channel-test")
	require.Error(t, err)
}

func TestCreateChannel_PublishConsumeRoundTrip(t *testing.T) {
	broker := setupKafkaBroker(t)
	t.Setenv("KAFKA_BROKERS", broker)

	topic := "zapline.runs.channeltest"
	createTopic(t, broker, topic)

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, "channel-test")
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, topic)

	t.Cleanup(func() { require.NoError(t, bus.Close()) })

	received := make(chan events.RunStageAvailable, 3)

	err = bus.Handle(events.RunStageAvailableEvent, func(_ context.Context, event any) error {
		decoded, ok := event.(*events.RunStageAvailable)
		require.True(t, ok)

		received <- *decoded

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	runID := "run-order-check"
	for stage := 1; stage <= 3; stage++ {
		err = bus.Publish(ctx, topic, runID, events.RunStageAvailable{
			ID:        bus.GenerateID(),
			RunID:     runID,
			Stage:     stage,
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	// Same partition key, so stages must arrive in publish order.
	for want := 1; want <= 3; want++ {
		select {
		case event := <-received:
			assert.Equal(t, runID, event.RunID)
			assert.Equal(t, want, event.Stage)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for stage %d", want)
		}
	}
}
