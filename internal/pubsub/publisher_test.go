package pubsub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"storefront/internal/config"

	ps "cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topic   string
	payload []byte
	attrs   map[string]string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, payload []byte, attrs map[string]string) (string, error) {
	r.topic, r.payload, r.attrs = topic, payload, attrs
	return "msg-1", nil
}

func TestPublishEvent(t *testing.T) {
	rec := &recordingPublisher{}
	ep := NewEventPublisher(rec, "download-events")

	id, err := ep.PublishEvent(context.Background(), EventDownloadCompleted, DownloadEvent{
		UserID: "u1", AssetID: "P1", AssetType: "pattern", Plan: "Pro",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "download-events", rec.topic)
	assert.Equal(t, EventDownloadCompleted, rec.attrs["event_type"])

	var evt struct {
		ID   string        `json:"id"`
		Type string        `json:"type"`
		Data DownloadEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.payload, &evt))
	assert.Equal(t, rec.attrs["event_id"], evt.ID)
	assert.Equal(t, EventDownloadCompleted, evt.Type)
	assert.Equal(t, "P1", evt.Data.AssetID)
}

func TestNewPublisherInvalidProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	if _, err := NewPublisher(context.Background(), cfg); err == nil {
		t.Fatal("expected error when project ID is empty")
	}
}

func TestPublishWithEmulator(t *testing.T) {
	emulator := os.Getenv("PUBSUB_EMULATOR_HOST")
	if emulator == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	cfg := &config.Config{GCPProjectID: "test-project"}
	pub, err := NewPublisher(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create PubSubPublisher: %v", err)
	}
	defer pub.Close()

	// Use underlying client to create topic and subscription
	topicName := "test-asset-events"
	topic, err := pub.client.CreateTopic(ctx, topicName)
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	sub, err := pub.client.CreateSubscription(ctx, "test-asset-events-sub", ps.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	msgID, err := NewEventPublisher(pub, topicName).PublishEvent(ctx, EventAssetPublished, AssetEvent{AssetID: "AB12CD34", AssetType: "pattern"})
	if err != nil {
		t.Fatalf("PublishEvent returned error: %v", err)
	}
	if msgID == "" {
		t.Fatal("expected non-empty message ID")
	}

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c := make(chan *ps.Message, 1)
	go func() {
		sub.Receive(recvCtx, func(ctx context.Context, m *ps.Message) {
			c <- m
			m.Ack()
			cancel()
		})
	}()

	select {
	case m := <-c:
		if m.Attributes["event_type"] != EventAssetPublished {
			t.Fatalf("expected event_type %q, got %q", EventAssetPublished, m.Attributes["event_type"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message from emulator subscription")
	}
}
