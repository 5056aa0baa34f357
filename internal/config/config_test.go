package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"DB_CONNECTION_STRING":   "postgres://localhost/storefront",
		"SUPABASE_JWT_SECRET":    "secret",
		"SUPABASE_URL":           "http://127.0.0.1:54321",
		"SUPABASE_ANON_KEY":      "anon",
		"SUPABASE_S3_URL":        "http://127.0.0.1:54321/storage/v1/s3",
		"SUPABASE_S3_REGION":     "local",
		"SUPABASE_S3_ACCESS_KEY": "ak",
		"SUPABASE_S3_SECRET_KEY": "sk",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "masters", cfg.MastersBucket)
	assert.Equal(t, "previews", cfg.PreviewsBucket)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, 30, cfg.DownloadRateLimit)
	assert.Equal(t, time.Minute, cfg.DownloadRateWindow)
	assert.Equal(t, "asset-events", cfg.PubSubAssetTopic)
	assert.Equal(t, "metadata_queue", cfg.MetadataQueueName)
	assert.Equal(t, "@hourly", cfg.SubscriptionExpirySchedule)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	// Setenv restores the variable afterwards; envconfig only treats unset as missing.
	t.Setenv("DB_CONNECTION_STRING", "")
	require.NoError(t, os.Unsetenv("DB_CONNECTION_STRING"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("SIGNED_URL_TTL", "15m")
	t.Setenv("DOWNLOAD_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, 5, cfg.DownloadRateLimit)
}

func TestGetGCPProjectID(t *testing.T) {
	cfg := &Config{GCPProjectID: "prod", GCPProjectIDLocal: "local"}
	assert.Equal(t, "prod", cfg.GetGCPProjectID())

	cfg.PubSubEmulatorHost = "localhost:8085"
	assert.Equal(t, "local", cfg.GetGCPProjectID())

	cfg.GCPProjectIDLocal = ""
	assert.Equal(t, "prod", cfg.GetGCPProjectID())
}
