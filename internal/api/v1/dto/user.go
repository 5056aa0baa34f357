package dto

import "time"

// ProfileDTO is returned in API responses
type ProfileDTO struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	IsSuspended  bool      `json:"is_suspended"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileUpdateDTO is used for incoming profile update requests
type ProfileUpdateDTO struct {
	Name         string  `json:"name" validate:"required,max=120"`
	ProfileImage *string `json:"profile_image,omitempty" validate:"omitempty,url"`
}

type SubscriptionDTO struct {
	PlanName           string     `json:"plan_name"`
	Status             string     `json:"status"`
	SubscriptionID     *string    `json:"subscription_id,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	IsCancelled        bool       `json:"is_cancelled"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

type TypeUsageDTO struct {
	Used int `json:"used"`
	// Limit and Remaining are -1 when unlimited.
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type UsageDTO struct {
	Plan          string       `json:"plan"`
	Status        string       `json:"status"`
	PeriodStart   *time.Time   `json:"period_start,omitempty"`
	Patterns      TypeUsageDTO `json:"patterns"`
	MotionVideos  TypeUsageDTO `json:"motion_videos"`
	TotalDistinct int          `json:"total_distinct"`
}

type MeDTO struct {
	Profile      ProfileDTO       `json:"profile"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	Usage        UsageDTO         `json:"usage"`
}

type DownloadLogDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AssetID   string    `json:"asset_id"`
	AssetType string    `json:"asset_type"`
	IP        *string   `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberDTO struct {
	Profile       ProfileDTO       `json:"profile"`
	Subscription  *SubscriptionDTO `json:"subscription,omitempty"`
	DownloadCount int              `json:"download_count"`
}

type SuspensionDTO struct {
	Suspended bool `json:"suspended"`
}
