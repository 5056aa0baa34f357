package storage_test

import (
	"testing"

	"storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "public url",
			url:  "https://proj.supabase.co/storage/v1/object/public/masters/abc123-Floral_Pack.zip",
			want: "abc123-Floral_Pack.zip",
		},
		{
			name: "query stripped and decoded",
			url:  "https://proj.supabase.co/storage/v1/object/public/masters/k1-Big%20Pack.ZIP?token=xyz",
			want: "k1-Big Pack.ZIP",
		},
		{
			name: "nested key",
			url:  "https://cdn.example.com/masters/2024/k-file.mp4",
			want: "2024/k-file.mp4",
		},
		{name: "other bucket", url: "https://proj.supabase.co/storage/v1/object/public/previews/a.jpg", wantErr: true},
		{name: "empty key", url: "https://x/masters/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ObjectKeyFromURL(tt.url, "masters")
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrNoObjectKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		title, url, want string
	}{
		{"Floral Pack", "https://x/masters/k-floral.ZIP?download=1", "Elymand_Floral_Pack_Master.zip"},
		{"Neon/Waves #2", "https://x/masters/k-waves.mp4", "Elymand_Neon_Waves__2_Master.mp4"},
		{"No Ext", "https://x/masters/k-file", "Elymand_No_Ext_Master.zip"},
		{"Dotted dir", "https://x/masters.v2/k-file", "Elymand_Dotted_dir_Master.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.DownloadFilename(tt.title, tt.url))
		})
	}
}

func TestMotionDownloadFilename(t *testing.T) {
	assert.Equal(t, "Elymand_Wave_Loop_4K_Master.mov", storage.MotionDownloadFilename("Wave Loop", "MOV", "https://x/masters/k-wave.mp4"))
	assert.Equal(t, "Elymand_Wave_Loop_4K_Master.mp4", storage.MotionDownloadFilename("Wave Loop", "", "https://x/masters/k-wave.MP4?t=1"))
	assert.Equal(t, "Elymand_Wave_Loop_4K_Master.mp4", storage.MotionDownloadFilename("Wave Loop", " ", "https://x/masters/k-wave"))
}

func TestUploadKey(t *testing.T) {
	assert.Equal(t, "k9x2-My_Summer_Pack.png", storage.UploadKey("k9x2", "My Summer \t Pack.png"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/previews/k-wm_a.jpg",
		storage.PublicURL("https://proj.supabase.co/", "previews", "k-wm_a.jpg"))
}
