package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Local & Github Secrets (Fill up for local development)
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`
	SupabaseURL        string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAnonKey    string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	S3URL              string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Region           string `envconfig:"SUPABASE_S3_REGION" required:"true"`
	S3AccessKey        string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey        string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`
	Environment        string `envconfig:"ENV" default:"development"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"debug"`

	// Storage
	MastersBucket  string        `envconfig:"MASTERS_BUCKET" default:"masters"`
	PreviewsBucket string        `envconfig:"PREVIEWS_BUCKET" default:"previews"`
	SignedURLTTL   time.Duration `envconfig:"SIGNED_URL_TTL" default:"1h"`

	// Local Secrets (Fill up for local development)
	Port               string `envconfig:"PORT" default:"8080"`
	APIBaseURL         string `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	RedisURL           string `envconfig:"REDIS_URL"`

	// Text generation
	GeminiAPIKey       string        `envconfig:"GEMINI_API_KEY"`
	GeminiAPIKeySecret string        `envconfig:"GEMINI_API_KEY_SECRET"`
	GeminiModel        string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiTimeout      time.Duration `envconfig:"GEMINI_TIMEOUT" default:"15s"`

	// Payment webhook
	CheckoutSecretKey       string `envconfig:"TWOCHECKOUT_SECRET_KEY"`
	CheckoutSecretKeySecret string `envconfig:"TWOCHECKOUT_SECRET_KEY_SECRET"`

	// Rate limits
	DownloadRateLimit  int           `envconfig:"DOWNLOAD_RATE_LIMIT" default:"30"`
	DownloadRateWindow time.Duration `envconfig:"DOWNLOAD_RATE_WINDOW" default:"1m"`
	AuthRateRPS        float64       `envconfig:"AUTH_RATE_RPS" default:"1"`
	AuthRateBurst      int           `envconfig:"AUTH_RATE_BURST" default:"5"`

	// Pub/Sub topics
	PubSubAssetTopic    string `envconfig:"PUBSUB_ASSET_TOPIC" default:"asset-events"`
	PubSubDownloadTopic string `envconfig:"PUBSUB_DOWNLOAD_TOPIC" default:"download-events"`

	// Metadata orchestrator settings
	MetadataQueueName           string `envconfig:"METADATA_QUEUE_NAME" default:"metadata_queue"`
	MetadataPollTimeoutSec      int    `envconfig:"METADATA_POLL_TIMEOUT_SEC" default:"30"`
	MetadataPollMaxMsg          int    `envconfig:"METADATA_POLL_MAX_MSG" default:"1"`
	MetadataMaxRetries          int    `envconfig:"METADATA_MAX_RETRIES" default:"3"`
	MetadataDeadLetterQueueName string `envconfig:"METADATA_DEAD_LETTER_QUEUE_NAME" default:"metadata_queue_dlq"`

	// Subscription scheduler settings
	SubscriptionExpirySchedule string        `envconfig:"SUBSCRIPTION_EXPIRY_SCHEDULE" default:"@hourly"`
	SubscriptionGracePeriod    time.Duration `envconfig:"SUBSCRIPTION_GRACE_PERIOD" default:"6h"`

	// GitHub Secrets (No need to fill up for local development)
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	GCPProjectIDLocal             string `envconfig:"GCP_PROJECT_ID_LOCAL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetGCPProjectID returns the project to use for Pub/Sub and Secret Manager.
// The local project is used whenever the emulator is configured.
func (c *Config) GetGCPProjectID() string {
	if c.PubSubEmulatorHost != "" && c.GCPProjectIDLocal != "" {
		return c.GCPProjectIDLocal
	}
	return c.GCPProjectID
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
