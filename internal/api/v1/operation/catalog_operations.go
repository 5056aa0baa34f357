package operation

import "storefront/internal/api/v1/dto"

type ListCatalogInput struct {
	Category string `query:"category" doc:"Category filter; empty or 'all' matches every category"`
	Query    string `query:"q" maxLength:"200" doc:"Matches title, description or tags"`
	Limit    int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Number of items per type"`
	Offset   int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListCatalogOutput struct {
	Body dto.CatalogDTO `json:"body"`
}

type ListPatternsOutput struct {
	Body []dto.PatternDTO `json:"body"`
}

type ListMotionVideosOutput struct {
	Body []dto.MotionVideoDTO `json:"body"`
}

type GetAssetInput struct {
	AssetID string `path:"assetId" doc:"Asset ID"`
}

type GetPatternOutput struct {
	Body dto.PatternDTO `json:"body"`
}

type GetMotionVideoOutput struct {
	Body dto.MotionVideoDTO `json:"body"`
}
