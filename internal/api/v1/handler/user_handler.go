package handler

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/api/v1/dto"
	"storefront/internal/api/v1/operation"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// UserHandler implements Huma-based account operations for the signed-in user
type UserHandler struct {
	userService service.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetMe returns the profile, subscription and quota usage of the caller
func (h *UserHandler) GetMe(ctx context.Context, input *operation.GetMeInput) (*operation.GetMeOutput, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	me, err := h.userService.GetMe(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return nil, huma.Error404NotFound("Profile not found")
		}
		return nil, huma.Error500InternalServerError("Failed to get account", err)
	}

	return &operation.GetMeOutput{
		Body: dto.MeDTO{
			Profile:      toProfileDTO(me.Profile),
			Subscription: toSubscriptionDTO(me.Subscription),
			Usage:        toUsageDTO(me.Usage),
		},
	}, nil
}

// UpdateMe changes the caller's display name and avatar
func (h *UserHandler) UpdateMe(ctx context.Context, input *operation.UpdateMeInput) (*operation.UpdateMeOutput, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}

	profile, err := h.userService.UpdateMe(ctx, session.UserID, strings.TrimSpace(input.Body.Name), input.Body.ProfileImage)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return nil, huma.Error404NotFound("Profile not found")
		}
		return nil, huma.Error500InternalServerError("Failed to update profile", err)
	}
	return &operation.UpdateMeOutput{Body: toProfileDTO(profile)}, nil
}

// ListMyDownloads returns the caller's download history, newest first
func (h *UserHandler) ListMyDownloads(ctx context.Context, input *operation.ListMyDownloadsInput) (*operation.ListDownloadLogsOutput, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	logs, err := h.userService.ListMyDownloads(ctx, session.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list downloads", err)
	}
	return &operation.ListDownloadLogsOutput{Body: toDownloadLogDTOs(logs)}, nil
}

// CancelSubscription flags the caller's subscription for cancellation at period end
func (h *UserHandler) CancelSubscription(ctx context.Context, input *operation.CancelSubscriptionInput) (*operation.CancelSubscriptionOutput, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.userService.CancelSubscription(ctx, session.UserID); err != nil {
		if errors.Is(err, service.ErrNoSubscription) {
			return nil, huma.Error404NotFound("No active subscription")
		}
		h.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to cancel subscription")
		return nil, huma.Error500InternalServerError("Failed to cancel subscription", err)
	}
	return &operation.CancelSubscriptionOutput{}, nil
}
