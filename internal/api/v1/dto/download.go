package dto

// DownloadRequestDTO asks for a transfer handle to an asset's master file.
type DownloadRequestDTO struct {
	AssetID   string `json:"asset_id" validate:"required,max=64"`
	AssetType string `json:"asset_type" validate:"required,oneof=pattern patterns motion motion-video motion-videos"`
}

// DownloadResponseDTO reports the outcome of a download or entitlement check. URL and
// Filename are set when the outcome is ready and a transfer was issued.
type DownloadResponseDTO struct {
	Outcome  string `json:"outcome" enum:"ready,sign_in_required,verification_required,suspended,denied"`
	Allowed  bool   `json:"allowed"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}
