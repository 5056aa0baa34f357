package dto

// GenerateMetadataDTO asks for marketing copy for a title.
type GenerateMetadataDTO struct {
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category,omitempty" validate:"max=100"`
}

type MetadataDTO struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
