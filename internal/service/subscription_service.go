package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// BillingPeriod is the length of one paid period started by a payment notification.
const BillingPeriod = 30 * 24 * time.Hour

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	// GetSubscription returns the user's subscription, or nil for users who never paid.
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	Activate(ctx context.Context, a model.SubscriptionActivation) error
	MarkCancelledByProcessor(ctx context.Context, userID string, at time.Time) error
	// RequestCancellation flags the subscription as cancelled. Access lasts until the period ends.
	RequestCancellation(ctx context.Context, userID string) error
	// ExpireLapsed deactivates paid subscriptions whose period ended more than the grace period before now.
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	grace  time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, grace time.Duration, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:   repo,
		grace:  grace,
		now:    time.Now,
		logger: logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Activate(ctx context.Context, a model.SubscriptionActivation) error {
	if err := s.repo.Activate(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("user_id", a.UserID).Str("plan_name", a.PlanName).Msg("Failed to activate subscription")
		return err
	}
	s.logger.Info().Str("user_id", a.UserID).Str("plan_name", a.PlanName).Time("period_end", a.PeriodEnd).Msg("Subscription activated")
	return nil
}

func (s *subscriptionService) MarkCancelledByProcessor(ctx context.Context, userID string, at time.Time) error {
	if err := s.repo.MarkCancelledByProcessor(ctx, userID, at); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to cancel subscription")
		return err
	}
	return nil
}

func (s *subscriptionService) RequestCancellation(ctx context.Context, userID string) error {
	err := s.repo.RequestCancellation(ctx, userID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoSubscription
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to request subscription cancellation")
		return err
	}
	return nil
}

func (s *subscriptionService) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireLapsed(ctx, now.Add(-s.grace))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to expire lapsed subscriptions")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("expired", n).Msg("Expired lapsed subscriptions")
	}
	return n, nil
}
