package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishEvent(context.Background(), TopicSweetEvents, "k", Event{Type: TypeSweetCreated}))
	assert.NoError(t, p.Close())
}

func TestProducer_PublishEvent(t *testing.T) {
	broker := os.Getenv("KAFKA_TEST_BROKER")
	if broker == "" {
		t.Skip("KAFKA_TEST_BROKER is required for kafka tests")
	}
	topic := "sweet_events_test"

	p, err := NewProducer([]string{broker})
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	qty := 4
	sent := Event{Type: TypeSweetPurchased, SweetID: "abc", Amount: 1, Quantity: &qty, At: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, p.PublishEvent(ctx, topic, "abc", sent))

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		StartOffset: kafka.LastOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer r.Close()
	require.NoError(t, r.SetOffset(kafka.FirstOffset))

	for {
		msg, err := r.ReadMessage(ctx)
		require.NoError(t, err)
		var got Event
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		if got.Type == sent.Type && string(msg.Key) == "abc" {
			assert.Equal(t, 4, *got.Quantity)
			return
		}
	}
}
