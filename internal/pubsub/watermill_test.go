package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoh2o/portal/internal/pubsub"
)

func TestWatermillBridge_PublishSubscribe(t *testing.T) {
	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()

	received := make(chan pubsub.Message, 1)
	err := bridge.Subscribe(context.Background(), "notifications.new", func(ctx context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	sent := pubsub.Message{
		Topic:    "notifications.new",
		UserID:   "user:amina",
		Payload:  []byte(`{"title":"Commande confirmée !"}`),
		Metadata: map[string]string{"source": "coordinator"},
	}
	require.NoError(t, bridge.Publish(context.Background(), sent))

	select {
	case msg := <-received:
		assert.Equal(t, sent.Topic, msg.Topic)
		assert.Equal(t, sent.UserID, msg.UserID)
		assert.Equal(t, sent.Payload, msg.Payload)
		assert.Equal(t, "coordinator", msg.Metadata["source"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestWatermillBridge_TopicsAreIsolated(t *testing.T) {
	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()

	received := make(chan pubsub.Message, 1)
	err := bridge.Subscribe(context.Background(), "notifications.new", func(ctx context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bridge.Publish(context.Background(), pubsub.Message{Topic: "orders.changed", Payload: []byte("x")}))

	select {
	case msg := <-received:
		t.Fatalf("message leaked across topics: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
