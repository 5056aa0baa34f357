package operation

import "storefront/internal/api/v1/dto"

type DownloadInput struct {
	Body dto.DownloadRequestDTO `json:"body"`
}

type CheckEntitlementInput struct {
	AssetType string `path:"assetType" enum:"pattern,patterns,motion,motion-video,motion-videos" doc:"Asset type"`
	AssetID   string `path:"assetId" doc:"Asset ID"`
}

// DownloadOutput carries the outcome; Status is set from it.
type DownloadOutput struct {
	Status int
	Body   dto.DownloadResponseDTO `json:"body"`
}
