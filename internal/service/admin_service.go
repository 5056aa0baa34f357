package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AdminService backs the admin console.
type AdminService interface {
	// RequireAdmin returns ErrForbidden unless the user has the admin role.
	RequireAdmin(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]model.MemberSummary, error)
	SetSuspension(ctx context.Context, userID string, suspended bool) error
	ListLogs(ctx context.Context, limit, offset int) ([]model.DownloadLog, error)
}

type adminService struct {
	profiles repository.ProfileRepository
	subs     repository.SubscriptionRepository
	ledger   repository.DownloadLogRepository
	logger   zerolog.Logger
}

func NewAdminService(profiles repository.ProfileRepository, subs repository.SubscriptionRepository, ledger repository.DownloadLogRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		profiles: profiles,
		subs:     subs,
		ledger:   ledger,
		logger:   logger.With().Str("service", "AdminService").Logger(),
	}
}

func (s *adminService) RequireAdmin(ctx context.Context, userID string) error {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read profile for admin check")
		return fmt.Errorf("reading profile: %w", err)
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.MemberSummary, error) {
	var (
		profiles []model.Profile
		subs     []model.Subscription
		counts   map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.subs.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.ledger.CountByUser(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to list members")
		return nil, fmt.Errorf("listing members: %w", err)
	}

	byUser := make(map[string]*model.Subscription, len(subs))
	for i := range subs {
		byUser[subs[i].UserID] = &subs[i]
	}
	out := make([]model.MemberSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, model.MemberSummary{
			Profile:       p,
			Subscription:  byUser[p.ID],
			DownloadCount: counts[p.ID],
		})
	}
	return out, nil
}

func (s *adminService) SetSuspension(ctx context.Context, userID string, suspended bool) error {
	if err := s.profiles.SetSuspended(ctx, userID, suspended); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to change suspension")
		return fmt.Errorf("setting suspension: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Bool("suspended", suspended).Msg("Account suspension changed")
	return nil
}

func (s *adminService) ListLogs(ctx context.Context, limit, offset int) ([]model.DownloadLog, error) {
	logs, err := s.ledger.ListAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list download logs")
		return nil, fmt.Errorf("listing download logs: %w", err)
	}
	return logs, nil
}
