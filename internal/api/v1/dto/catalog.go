package dto

import "time"

type PatternDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Thumbnail   string    `json:"thumbnail"`
	Tags        []string  `json:"tags"`
	Formats     []string  `json:"formats"`
	CreatedAt   time.Time `json:"created_at"`
}

type MotionVideoDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Duration    string    `json:"duration"`
	Resolution  string    `json:"resolution"`
	FPS         string    `json:"fps"`
	Format      string    `json:"format"`
	Thumbnail   string    `json:"thumbnail"`
	PreviewURL  string    `json:"preview_url"`
	IsLooping   bool      `json:"is_looping"`
	HasAlpha    bool      `json:"has_alpha"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

type CatalogDTO struct {
	Patterns     []PatternDTO     `json:"patterns"`
	MotionVideos []MotionVideoDTO `json:"motion_videos"`
}

// AssetDTO identifies a newly published asset.
type AssetDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}
