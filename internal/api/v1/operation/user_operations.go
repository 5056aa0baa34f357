package operation

import "storefront/internal/api/v1/dto"

type GetMeInput struct{}

type GetMeOutput struct {
	Body dto.MeDTO `json:"body"`
}

type UpdateMeInput struct {
	Body dto.ProfileUpdateDTO `json:"body"`
}

type UpdateMeOutput struct {
	Body dto.ProfileDTO `json:"body"`
}

type ListMyDownloadsInput struct{}

type ListDownloadLogsOutput struct {
	Body []dto.DownloadLogDTO `json:"body"`
}

type CancelSubscriptionInput struct{}

type CancelSubscriptionOutput struct {
	// 204 No Content
}
