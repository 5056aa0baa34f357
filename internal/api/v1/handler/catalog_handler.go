package handler

import (
	"context"
	"errors"

	"storefront/internal/api/v1/dto"
	"storefront/internal/api/v1/operation"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// CatalogHandler serves the public catalog
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         zerolog.Logger
}

func NewCatalogHandler(catalogService service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

func catalogFilter(in *operation.ListCatalogInput) model.CatalogFilter {
	return model.CatalogFilter{
		Category: in.Category,
		Query:    in.Query,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
}

// ListCatalog returns published patterns and all motion videos
func (h *CatalogHandler) ListCatalog(ctx context.Context, input *operation.ListCatalogInput) (*operation.ListCatalogOutput, error) {
	catalog, err := h.catalogService.ListCatalog(ctx, catalogFilter(input))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list catalog", err)
	}

	out := dto.CatalogDTO{
		Patterns:     make([]dto.PatternDTO, len(catalog.Patterns)),
		MotionVideos: make([]dto.MotionVideoDTO, len(catalog.MotionVideos)),
	}
	for i, p := range catalog.Patterns {
		out.Patterns[i] = toPatternDTO(p)
	}
	for i, m := range catalog.MotionVideos {
		out.MotionVideos[i] = toMotionVideoDTO(m)
	}
	return &operation.ListCatalogOutput{Body: out}, nil
}

func (h *CatalogHandler) ListPatterns(ctx context.Context, input *operation.ListCatalogInput) (*operation.ListPatternsOutput, error) {
	patterns, err := h.catalogService.ListPatterns(ctx, catalogFilter(input))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list patterns", err)
	}
	out := make([]dto.PatternDTO, len(patterns))
	for i, p := range patterns {
		out[i] = toPatternDTO(p)
	}
	return &operation.ListPatternsOutput{Body: out}, nil
}

func (h *CatalogHandler) GetPattern(ctx context.Context, input *operation.GetAssetInput) (*operation.GetPatternOutput, error) {
	p, err := h.catalogService.GetPattern(ctx, input.AssetID)
	if err != nil {
		if errors.Is(err, service.ErrAssetNotFound) {
			return nil, huma.Error404NotFound("Pattern not found")
		}
		return nil, huma.Error500InternalServerError("Failed to get pattern", err)
	}
	return &operation.GetPatternOutput{Body: toPatternDTO(*p)}, nil
}

func (h *CatalogHandler) ListMotionVideos(ctx context.Context, input *operation.ListCatalogInput) (*operation.ListMotionVideosOutput, error) {
	videos, err := h.catalogService.ListMotionVideos(ctx, catalogFilter(input))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list motion videos", err)
	}
	out := make([]dto.MotionVideoDTO, len(videos))
	for i, m := range videos {
		out[i] = toMotionVideoDTO(m)
	}
	return &operation.ListMotionVideosOutput{Body: out}, nil
}

func (h *CatalogHandler) GetMotionVideo(ctx context.Context, input *operation.GetAssetInput) (*operation.GetMotionVideoOutput, error) {
	m, err := h.catalogService.GetMotionVideo(ctx, input.AssetID)
	if err != nil {
		if errors.Is(err, service.ErrAssetNotFound) {
			return nil, huma.Error404NotFound("Motion video not found")
		}
		return nil, huma.Error500InternalServerError("Failed to get motion video", err)
	}
	return &operation.GetMotionVideoOutput{Body: toMotionVideoDTO(*m)}, nil
}
