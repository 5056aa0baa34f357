package model

import (
	"time"

	"storefront/internal/entitlement"
)

const (
	PatternStatusPublished = "Published"
	PatternStatusDraft     = "Draft"
	PatternStatusArchived  = "Archived"
)

// Pattern is a vector/image package in the catalog.
type Pattern struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Status      string    `db:"status"`
	Thumbnail   string    `db:"thumbnail"`
	DownloadURL string    `db:"download_url"`
	Tags        []string  `db:"tags"`
	Formats     []string  `db:"formats"`
	CreatedAt   time.Time `db:"created_at"`
}

// MotionVideo is a rendered motion-graphics clip in the catalog.
type MotionVideo struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Duration    string    `db:"duration"`
	Resolution  string    `db:"resolution"`
	FPS         string    `db:"fps"`
	Format      string    `db:"format"`
	Thumbnail   string    `db:"thumbnail"`
	PreviewURL  string    `db:"preview_url"`
	DownloadURL string    `db:"download_url"`
	IsLooping   bool      `db:"is_looping"`
	HasAlpha    bool      `db:"has_alpha"`
	Tags        []string  `db:"tags"`
	CreatedAt   time.Time `db:"created_at"`
}

// Asset is the part of a catalog entry the download path needs.
type Asset struct {
	ID          string
	Type        entitlement.AssetType
	Title       string
	DownloadURL string
	Thumbnail   string
	// Format is the stored container format of a motion video.
	Format string
}

func (p *Pattern) Asset() *Asset {
	return &Asset{ID: p.ID, Type: entitlement.AssetPattern, Title: p.Title, DownloadURL: p.DownloadURL, Thumbnail: p.Thumbnail}
}

func (m *MotionVideo) Asset() *Asset {
	return &Asset{ID: m.ID, Type: entitlement.AssetMotion, Title: m.Title, DownloadURL: m.DownloadURL, Thumbnail: m.Thumbnail, Format: m.Format}
}

// CatalogFilter narrows a catalog listing.
type CatalogFilter struct {
	Category string
	Query    string
	Limit    int
	Offset   int
}

// AssetMetadata is the marketing copy attached to an asset.
type AssetMetadata struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
