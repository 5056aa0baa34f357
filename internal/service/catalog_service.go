package service

import (
	"context"

	"storefront/internal/entitlement"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Catalog is the combined public listing.
type Catalog struct {
	Patterns     []model.Pattern
	MotionVideos []model.MotionVideo
}

// CatalogService serves the public asset catalog.
type CatalogService interface {
	ListCatalog(ctx context.Context, f model.CatalogFilter) (*Catalog, error)
	ListPatterns(ctx context.Context, f model.CatalogFilter) ([]model.Pattern, error)
	GetPattern(ctx context.Context, id string) (*model.Pattern, error)
	ListMotionVideos(ctx context.Context, f model.CatalogFilter) ([]model.MotionVideo, error)
	GetMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error)
	// GetAsset returns ErrAssetNotFound for unknown ids.
	GetAsset(ctx context.Context, assetType entitlement.AssetType, id string) (*model.Asset, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	logger zerolog.Logger
}

func NewCatalogService(repo repository.CatalogRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		logger: logger.With().Str("service", "CatalogService").Logger(),
	}
}

func (s *catalogService) ListCatalog(ctx context.Context, f model.CatalogFilter) (*Catalog, error) {
	var out Catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Patterns, err = s.ListPatterns(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		out.MotionVideos, err = s.ListMotionVideos(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *catalogService) ListPatterns(ctx context.Context, f model.CatalogFilter) ([]model.Pattern, error) {
	patterns, err := s.repo.ListPatterns(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Str("category", f.Category).Msg("Failed to list patterns")
		return nil, err
	}
	return patterns, nil
}

func (s *catalogService) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	p, err := s.repo.GetPattern(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", id).Msg("Failed to fetch pattern")
		return nil, err
	}
	if p == nil {
		return nil, ErrAssetNotFound
	}
	return p, nil
}

func (s *catalogService) ListMotionVideos(ctx context.Context, f model.CatalogFilter) ([]model.MotionVideo, error) {
	videos, err := s.repo.ListMotionVideos(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Str("category", f.Category).Msg("Failed to list motion videos")
		return nil, err
	}
	return videos, nil
}

func (s *catalogService) GetMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error) {
	m, err := s.repo.GetMotionVideo(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", id).Msg("Failed to fetch motion video")
		return nil, err
	}
	if m == nil {
		return nil, ErrAssetNotFound
	}
	return m, nil
}

func (s *catalogService) GetAsset(ctx context.Context, assetType entitlement.AssetType, id string) (*model.Asset, error) {
	if assetType == entitlement.AssetMotion {
		m, err := s.GetMotionVideo(ctx, id)
		if err != nil {
			return nil, err
		}
		return m.Asset(), nil
	}
	p, err := s.GetPattern(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Asset(), nil
}
