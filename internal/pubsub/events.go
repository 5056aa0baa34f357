package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types carried in the "event_type" attribute.
const (
	EventAssetPublished    = "asset.published"
	EventAssetDeleted      = "asset.deleted"
	EventDownloadCompleted = "download.completed"
	EventDownloadUnlogged  = "download.unlogged"
)

// Event is the envelope of every domain event.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// AssetEvent describes a catalog change.
type AssetEvent struct {
	AssetID   string `json:"asset_id"`
	AssetType string `json:"asset_type"`
	Title     string `json:"title,omitempty"`
}

// DownloadEvent describes an admitted download.
type DownloadEvent struct {
	UserID    string `json:"user_id"`
	AssetID   string `json:"asset_id"`
	AssetType string `json:"asset_type"`
	Plan      string `json:"plan"`
	Error     string `json:"error,omitempty"`
}

// EventPublisher wraps a Publisher with the event envelope.
type EventPublisher struct {
	pub   Publisher
	topic string
}

func NewEventPublisher(pub Publisher, topic string) *EventPublisher {
	return &EventPublisher{pub: pub, topic: topic}
}

// PublishEvent marshals data into an Event and publishes it.
func (e *EventPublisher) PublishEvent(ctx context.Context, eventType string, data any) (string, error) {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return e.pub.Publish(ctx, e.topic, payload, map[string]string{"event_type": eventType, "event_id": evt.ID})
}
