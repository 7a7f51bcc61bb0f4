package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisherPublish(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "test.events")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub, "test.events")
	event := ports.AuthEvent{
		Type:      ports.EventAttemptRejected,
		AttemptID: "attempt",
		Address:   "0xabc",
		Decision:  core.DecisionReject,
		Attempts:  3,
	}
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, ports.EventAttemptRejected, msg.Metadata.Get("type"))

		var got ports.AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event, got)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

func TestNewWatermillPublisherDefaultTopic(t *testing.T) {
	pub := NewWatermillPublisher(nil, "")
	assert.Equal(t, DefaultTopic, pub.topic)
}
