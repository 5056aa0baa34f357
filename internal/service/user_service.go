package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"storefront/internal/entitlement"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Me is the account view of the signed-in user.
type Me struct {
	Profile      *model.Profile
	Subscription *model.Subscription
	Usage        entitlement.Usage
}

// UserService serves the signed-in user's own account.
type UserService interface {
	GetMe(ctx context.Context, userID string) (*Me, error)
	UpdateMe(ctx context.Context, userID, name string, profileImage *string) (*model.Profile, error)
	// ListMyDownloads returns the user's ledger, newest first.
	ListMyDownloads(ctx context.Context, userID string) ([]model.DownloadLog, error)
	CancelSubscription(ctx context.Context, userID string) error
}

type userService struct {
	profiles repository.ProfileRepository
	subs     SubscriptionService
	ledger   repository.DownloadLogRepository
	logger   zerolog.Logger
}

func NewUserService(profiles repository.ProfileRepository, subs SubscriptionService, ledger repository.DownloadLogRepository, logger zerolog.Logger) UserService {
	return &userService{
		profiles: profiles,
		subs:     subs,
		ledger:   ledger,
		logger:   logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) GetMe(ctx context.Context, userID string) (*Me, error) {
	var (
		profile *model.Profile
		sub     *model.Subscription
		logs    []model.DownloadLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profiles.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		sub, err = s.subs.GetSubscription(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.ledger.ListByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load account")
		return nil, fmt.Errorf("loading account: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return &Me{
		Profile:      profile,
		Subscription: sub,
		Usage:        entitlement.Summarize(sub.Entitlement(), model.LedgerEntries(logs)),
	}, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID, name string, profileImage *string) (*model.Profile, error) {
	p, err := s.profiles.Update(ctx, userID, strings.TrimSpace(name), profileImage)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return p, nil
}

func (s *userService) ListMyDownloads(ctx context.Context, userID string) ([]model.DownloadLog, error) {
	logs, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list downloads")
		return nil, fmt.Errorf("listing downloads: %w", err)
	}
	slices.Reverse(logs)
	return logs, nil
}

func (s *userService) CancelSubscription(ctx context.Context, userID string) error {
	return s.subs.RequestCancellation(ctx, userID)
}
