package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// For local development, 'host.docker.internal' lets the emulator reach the API on the host.
const dlqEndpointLocal = "http://host.docker.internal:8080/dlq/record"

func main() {
	// Load environment variables early for local development
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on system environment variables.")
	}

	logger := logger.New()
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}

	projectID := cfg.GCPProjectIDLocal
	if projectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID_LOCAL is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment.")
	}

	clientOptions := []option.ClientOption{
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID, clientOptions...)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	resetLocalEmulator(ctx, client, logger)
	createResources(ctx, client, logger, []string{cfg.PubSubAssetTopic, cfg.PubSubDownloadTopic})

	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

// resetLocalEmulator deletes every topic and subscription. Only ever run it against the emulator.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	logger.Info().Msg("--- Deleting all existing resources for a clean local setup ---")

	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Msgf("Deleting subscription: %s", sub.ID())
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Msgf("Deleting topic: %s", topic.ID())
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
}

// createResources creates each event topic with a pull subscription whose undeliverable
// messages are dead-lettered to a topic pushed to the API's DLQ endpoint.
func createResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicIDs []string) {
	sevenDays := 7 * 24 * time.Hour
	retry := &pubsub.RetryPolicy{
		MinimumBackoff: 10 * time.Second,
		MaximumBackoff: 600 * time.Second,
	}

	for _, topicID := range topicIDs {
		dlqTopicID := topicID + "-dlq"
		subID := topicID + "-sub"
		dlqSubID := topicID + "-dlq-sub"

		logger.Info().Msgf("--- Creating resources for topic: %s ---", topicID)

		dlqTopic := createTopic(ctx, client, logger, dlqTopicID, sevenDays)
		mainTopic := createTopic(ctx, client, logger, topicID, sevenDays)

		createSubscription(ctx, client, logger, subID, pubsub.SubscriptionConfig{
			Topic:            mainTopic,
			AckDeadline:      60 * time.Second,
			ExpirationPolicy: 31 * 24 * time.Hour,
			RetryPolicy:      retry,
			DeadLetterPolicy: &pubsub.DeadLetterPolicy{
				DeadLetterTopic:     dlqTopic.String(),
				MaxDeliveryAttempts: 5,
			},
		})
		createSubscription(ctx, client, logger, dlqSubID, pubsub.SubscriptionConfig{
			Topic:            dlqTopic,
			PushConfig:       pubsub.PushConfig{Endpoint: dlqEndpointLocal},
			AckDeadline:      60 * time.Second,
			ExpirationPolicy: 31 * 24 * time.Hour,
			RetryPolicy:      retry,
		})
	}
}

func createTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) *pubsub.Topic {
	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	topic, err := client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{
		RetentionDuration: retention,
	})
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return topic
}

func createSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, cfg pubsub.SubscriptionConfig) {
	if cfg.PushConfig.Endpoint != "" {
		logger.Info().Msgf("Creating push subscription %s with endpoint %s", subID, cfg.PushConfig.Endpoint)
	} else {
		logger.Info().Msgf("Creating pull subscription %s", subID)
	}
	if _, err := client.CreateSubscription(ctx, subID, cfg); err != nil {
		logger.Fatal().Msgf("Failed to create subscription '%s': %v", subID, err)
	}
}
