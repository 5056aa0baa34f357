package handler

import (
	"context"

	"storefront/internal/api/v1/operation"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type DLQHandler struct {
	service service.DLQService
	logger  zerolog.Logger
}

func NewDLQHandler(s service.DLQService, l zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, logger: l}
}

func (h *DLQHandler) RecordDLQ(ctx context.Context, input *operation.RecordDLQInput) (*operation.RecordDLQOutput, error) {
	// Validate message structure
	if input.Body.Message.MessageID == "" {
		return nil, huma.Error400BadRequest("Invalid Pub/Sub message format: missing message ID")
	}

	h.logger.Info().
		Str("messageId", input.Body.Message.MessageID).
		Str("subscription", input.Body.Subscription).
		Msg("Processing dead-letter queue message")

	msg := service.PushMessage{
		Subscription: input.Body.Subscription,
		MessageID:    input.Body.Message.MessageID,
		Data:         input.Body.Message.Data,
		Attributes:   input.Body.Message.Attributes,
	}
	if err := h.service.ProcessAndSave(ctx, msg); err != nil {
		// Acknowledge anyway: the message is already dead-lettered and a retry would not help.
		h.logger.Error().Err(err).Str("messageId", msg.MessageID).Msg("Failed to save DLQ message to database")
		return &operation.RecordDLQOutput{}, nil
	}

	h.logger.Info().
		Str("messageId", input.Body.Message.MessageID).
		Msg("Successfully processed and saved DLQ message")

	return &operation.RecordDLQOutput{}, nil
}
