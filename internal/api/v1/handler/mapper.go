package handler

import (
	"time"

	"storefront/internal/api/v1/dto"
	"storefront/internal/entitlement"
	"storefront/internal/model"
)

func toPatternDTO(p model.Pattern) dto.PatternDTO {
	return dto.PatternDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Status:      p.Status,
		Thumbnail:   p.Thumbnail,
		Tags:        nonNil(p.Tags),
		Formats:     nonNil(p.Formats),
		CreatedAt:   p.CreatedAt,
	}
}

func toMotionVideoDTO(m model.MotionVideo) dto.MotionVideoDTO {
	return dto.MotionVideoDTO{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Duration:    m.Duration,
		Resolution:  m.Resolution,
		FPS:         m.FPS,
		Format:      m.Format,
		Thumbnail:   m.Thumbnail,
		PreviewURL:  m.PreviewURL,
		IsLooping:   m.IsLooping,
		HasAlpha:    m.HasAlpha,
		Tags:        nonNil(m.Tags),
		CreatedAt:   m.CreatedAt,
	}
}

func toProfileDTO(p *model.Profile) dto.ProfileDTO {
	return dto.ProfileDTO{
		ID:           p.ID,
		Email:        p.Email,
		Name:         p.Name,
		Role:         p.Role,
		ProfileImage: p.ProfileImage,
		IsSuspended:  p.IsSuspended,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toSubscriptionDTO(s *model.Subscription) *dto.SubscriptionDTO {
	if s == nil {
		return nil
	}
	status := entitlement.StatusActive.String()
	if s.Status != nil && *s.Status != "" {
		status = *s.Status
	}
	return &dto.SubscriptionDTO{
		PlanName:           s.Plan(),
		Status:             status,
		SubscriptionID:     s.SubscriptionID,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		IsCancelled:        s.IsCancelled,
		CancelledAt:        s.CancelledAt,
	}
}

func toTypeUsageDTO(u entitlement.TypeUsage) dto.TypeUsageDTO {
	return dto.TypeUsageDTO{Used: u.Used, Limit: u.Limit, Remaining: u.Remaining}
}

func toUsageDTO(u entitlement.Usage) dto.UsageDTO {
	out := dto.UsageDTO{
		Plan:          u.Plan.String(),
		Status:        u.Status.String(),
		Patterns:      toTypeUsageDTO(u.Patterns),
		MotionVideos:  toTypeUsageDTO(u.Motion),
		TotalDistinct: u.TotalDistinct,
	}
	if !u.PeriodStart.IsZero() {
		ps := u.PeriodStart.UTC().Truncate(time.Second)
		out.PeriodStart = &ps
	}
	return out
}

func toDownloadLogDTOs(logs []model.DownloadLog) []dto.DownloadLogDTO {
	out := make([]dto.DownloadLogDTO, len(logs))
	for i, l := range logs {
		out[i] = dto.DownloadLogDTO{
			ID:        l.ID,
			UserID:    l.UserID,
			AssetID:   l.AssetID,
			AssetType: l.AssetType,
			IP:        l.IP,
			CreatedAt: l.CreatedAt,
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
