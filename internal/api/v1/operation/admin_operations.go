package operation

import (
	"mime/multipart"

	"storefront/internal/api/v1/dto"
)

type GenerateMetadataInput struct {
	Body dto.GenerateMetadataDTO `json:"body"`
}

type GenerateMetadataOutput struct {
	Body dto.MetadataDTO `json:"body"`
}

// PublishInput is a multipart form with "master" and "preview" files and the
// asset's fields as form values.
type PublishInput struct {
	RawBody multipart.Form
}

type PublishOutput struct {
	Body dto.AssetDTO `json:"body"`
}

type DeleteAssetInput struct {
	AssetType string `path:"assetType" enum:"patterns,motion-videos" doc:"Asset type"`
	AssetID   string `path:"assetId" doc:"Asset ID"`
}

type DeleteAssetOutput struct {
	// 204 No Content
}

type ListUsersInput struct{}

type ListUsersOutput struct {
	Body []dto.MemberDTO `json:"body"`
}

type SetSuspensionInput struct {
	UserID string            `path:"userId" doc:"User ID"`
	Body   dto.SuspensionDTO `json:"body"`
}

type SetSuspensionOutput struct {
	// 204 No Content
}

type ListLogsInput struct {
	Limit  int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Number of log entries"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}
