package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"storefront/internal/api/v1/dto"
	"storefront/internal/api/v1/operation"
	"storefront/internal/entitlement"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// AdminHandler implements the admin dashboard operations. Every operation checks the
// caller's profile role before doing anything else.
type AdminHandler struct {
	adminService      service.AdminService
	publishingService service.PublishingService
	metadataService   service.MetadataService
	logger            zerolog.Logger
}

func NewAdminHandler(
	adminService service.AdminService,
	publishingService service.PublishingService,
	metadataService service.MetadataService,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		publishingService: publishingService,
		metadataService:   metadataService,
		logger:            logger,
	}
}

func (h *AdminHandler) requireAdmin(ctx context.Context) (*model.Session, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.adminService.RequireAdmin(ctx, session.UserID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return nil, huma.Error403Forbidden("Admin access required")
		}
		return nil, huma.Error500InternalServerError("Failed to verify role", err)
	}
	return session, nil
}

// GenerateMetadata drafts a description and tags for a title
func (h *AdminHandler) GenerateMetadata(ctx context.Context, input *operation.GenerateMetadataInput) (*operation.GenerateMetadataOutput, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}

	md := h.metadataService.Generate(ctx, strings.TrimSpace(input.Body.Title), strings.TrimSpace(input.Body.Category))
	return &operation.GenerateMetadataOutput{
		Body: dto.MetadataDTO{Description: md.Description, Tags: nonNil(md.Tags)},
	}, nil
}

func (h *AdminHandler) PublishPattern(ctx context.Context, input *operation.PublishInput) (*operation.PublishOutput, error) {
	return h.publish(ctx, entitlement.AssetPattern, &input.RawBody)
}

func (h *AdminHandler) PublishMotionVideo(ctx context.Context, input *operation.PublishInput) (*operation.PublishOutput, error) {
	return h.publish(ctx, entitlement.AssetMotion, &input.RawBody)
}

func (h *AdminHandler) publish(ctx context.Context, assetType entitlement.AssetType, form *multipart.Form) (*operation.PublishOutput, error) {
	session, err := h.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	master, closeMaster, err := formFile(form, "master")
	if err != nil {
		return nil, err
	}
	defer closeMaster()
	preview, closePreview, err := formFile(form, "preview")
	if err != nil {
		return nil, err
	}
	defer closePreview()

	req := service.PublishRequest{
		AssetType:   assetType,
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Category:    formValue(form, "category"),
		Tags:        splitList(formValue(form, "tags")),
		Formats:     splitList(strings.ToUpper(formValue(form, "formats"))),
		Duration:    formValue(form, "duration"),
		Resolution:  formValue(form, "resolution"),
		FPS:         formValue(form, "fps"),
		IsLooping:   formBool(form, "is_looping"),
		HasAlpha:    formBool(form, "has_alpha"),
		Master:      master,
		Preview:     preview,
	}

	asset, err := h.publishingService.Publish(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingPublishInput):
			return nil, huma.Error400BadRequest("Title, master file and a preview image are required unless the master is an image")
		case errors.Is(err, service.ErrWatermarkFailed):
			return nil, huma.Error422UnprocessableEntity("Preview image could not be processed")
		}
		h.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to publish asset")
		return nil, huma.Error500InternalServerError("Failed to publish asset", err)
	}

	return &operation.PublishOutput{
		Body: dto.AssetDTO{
			ID:        asset.ID,
			Type:      string(asset.Type),
			Title:     asset.Title,
			Thumbnail: asset.Thumbnail,
		},
	}, nil
}

// DeleteAsset removes a catalog entry and its stored files
func (h *AdminHandler) DeleteAsset(ctx context.Context, input *operation.DeleteAssetInput) (*operation.DeleteAssetOutput, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}
	assetType, ok := entitlement.ParseAssetType(input.AssetType)
	if !ok {
		return nil, huma.Error400BadRequest("Unknown asset type")
	}

	if err := h.publishingService.Delete(ctx, assetType, input.AssetID); err != nil {
		if errors.Is(err, service.ErrAssetNotFound) {
			return nil, huma.Error404NotFound("Asset not found")
		}
		return nil, huma.Error500InternalServerError("Failed to delete asset", err)
	}
	return &operation.DeleteAssetOutput{}, nil
}

// ListUsers returns every member with subscription and download count
func (h *AdminHandler) ListUsers(ctx context.Context, input *operation.ListUsersInput) (*operation.ListUsersOutput, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	members, err := h.adminService.ListUsers(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list users", err)
	}
	out := make([]dto.MemberDTO, len(members))
	for i, m := range members {
		out[i] = dto.MemberDTO{
			Profile:       toProfileDTO(&m.Profile),
			Subscription:  toSubscriptionDTO(m.Subscription),
			DownloadCount: m.DownloadCount,
		}
	}
	return &operation.ListUsersOutput{Body: out}, nil
}

func (h *AdminHandler) SetSuspension(ctx context.Context, input *operation.SetSuspensionInput) (*operation.SetSuspensionOutput, error) {
	session, err := h.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if input.UserID == session.UserID && input.Body.Suspended {
		return nil, huma.Error400BadRequest("Admins cannot suspend themselves")
	}

	if err := h.adminService.SetSuspension(ctx, input.UserID, input.Body.Suspended); err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to update suspension", err)
	}
	h.logger.Info().Str("admin_id", session.UserID).Str("user_id", input.UserID).Bool("suspended", input.Body.Suspended).Msg("Suspension updated")
	return &operation.SetSuspensionOutput{}, nil
}

// ListLogs pages through the whole download ledger, newest first
func (h *AdminHandler) ListLogs(ctx context.Context, input *operation.ListLogsInput) (*operation.ListDownloadLogsOutput, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	logs, err := h.adminService.ListLogs(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list download logs", err)
	}
	return &operation.ListDownloadLogsOutput{Body: toDownloadLogDTOs(logs)}, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func formBool(form *multipart.Form, key string) bool {
	b, _ := strconv.ParseBool(formValue(form, key))
	return b
}

// splitList accepts comma separated values and drops empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formFile opens the first file under key. A missing file yields a nil upload and
// is reported by the publishing service.
func formFile(form *multipart.Form, key string) (*service.UploadFile, func(), error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, func() {}, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, huma.Error400BadRequest("Unreadable " + key + " file")
	}
	return &service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}, func() {
			_ = f.Close()
		}, nil
}
