package handler

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/api/v1/dto"
	"storefront/internal/api/v1/operation"
	"storefront/internal/entitlement"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// DownloadHandler exposes the download orchestrator. Anonymous callers reach it and
// receive a sign-in outcome rather than a bare 401.
type DownloadHandler struct {
	downloadService service.DownloadService
	logger          zerolog.Logger
}

func NewDownloadHandler(downloadService service.DownloadService, logger zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
		logger:          logger,
	}
}

// outcomeStatus maps an orchestrated outcome onto its HTTP status.
func outcomeStatus(o service.Outcome) int {
	switch o {
	case service.OutcomeReady:
		return http.StatusOK
	case service.OutcomeSignInRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

func toDownloadOutput(res *service.DownloadResult) *operation.DownloadOutput {
	return &operation.DownloadOutput{
		Status: outcomeStatus(res.Outcome),
		Body: dto.DownloadResponseDTO{
			Outcome:  string(res.Outcome),
			Allowed:  res.Outcome == service.OutcomeReady,
			URL:      res.URL,
			Filename: res.Filename,
			Redirect: res.Redirect,
			Reason:   string(res.Reason),
			Message:  res.Message,
		},
	}
}

func downloadError(err error) error {
	switch {
	case errors.Is(err, service.ErrAssetNotFound):
		return huma.Error404NotFound("Asset not found")
	case errors.Is(err, service.ErrTransferInterrupted):
		return huma.Error503ServiceUnavailable(service.TransferInterruptedMessage)
	case errors.Is(err, service.ErrEntitlementUnavailable):
		return huma.Error503ServiceUnavailable("Unable to verify your plan right now. Please try again.")
	default:
		return huma.Error500InternalServerError("Download failed", err)
	}
}

func optionalSession(ctx context.Context) *model.Session {
	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		return nil
	}
	return session
}

// Download issues a transfer handle for the requested asset when the caller is entitled to it
func (h *DownloadHandler) Download(ctx context.Context, input *operation.DownloadInput) (*operation.DownloadOutput, error) {
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}
	assetType, _ := entitlement.ParseAssetType(input.Body.AssetType)

	res, err := h.downloadService.Download(ctx, optionalSession(ctx), assetType, input.Body.AssetID, middleware.ClientIPFromContext(ctx))
	if err != nil {
		return nil, downloadError(err)
	}
	return toDownloadOutput(res), nil
}

// CheckEntitlement reports what a download would do without issuing or recording anything
func (h *DownloadHandler) CheckEntitlement(ctx context.Context, input *operation.CheckEntitlementInput) (*operation.DownloadOutput, error) {
	assetType, ok := entitlement.ParseAssetType(input.AssetType)
	if !ok {
		return nil, huma.Error400BadRequest("Unknown asset type")
	}

	res, err := h.downloadService.CheckEntitlement(ctx, optionalSession(ctx), assetType, input.AssetID)
	if err != nil {
		return nil, downloadError(err)
	}
	return toDownloadOutput(res), nil
}
