package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"storefront/internal/model"
	"storefront/internal/repository"
)

// PushMessage is a Pub/Sub push delivery.
type PushMessage struct {
	Subscription string
	MessageID    string
	Data         string // base64
	Attributes   map[string]string
}

type DLQService interface {
	ProcessAndSave(ctx context.Context, msg PushMessage) error
}

type dlqService struct {
	repo repository.DLQRepository
}

func NewDLQService(repo repository.DLQRepository) DLQService {
	return &dlqService{repo: repo}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, msg PushMessage) error {
	payload, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		// keep the raw data when it is not base64
		payload = []byte(msg.Data)
	}

	var attributes *string
	if len(msg.Attributes) > 0 {
		if b, err := json.Marshal(msg.Attributes); err == nil {
			str := string(b)
			attributes = &str
		}
	}

	return s.repo.Create(ctx, &model.DeadLetterMessage{
		SubscriptionName: msg.Subscription,
		MessageID:        msg.MessageID,
		Payload:          string(payload),
		Attributes:       attributes,
		Status:           "unprocessed",
	})
}
