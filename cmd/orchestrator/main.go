package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/orchestrator/metadata"
	"storefront/internal/pgmq"
	"storefront/internal/repository"
	"storefront/internal/scheduler"
	"storefront/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var runOnce bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Background workers for the storefront",
	Long: `Runs the storefront's background work outside the API server:

  metadata   drains the metadata queue and fills in asset descriptions and tags
  scheduler  deactivates subscriptions whose billing period has lapsed`,
	SilenceUsage: true,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Generate descriptions and tags for newly published assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := repository.NewPool(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("Database connection established")

		// Initialize PGMQ client
		pgmqClient := pgmq.New(pool)
		logger.Info().Msg("PGMQ client initialized")

		secrets, closeSecrets, err := service.NewSecretManagerStore(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable, using environment values only")
			secrets = nil
		} else {
			defer func() { _ = closeSecrets() }()
		}
		apiKey, err := service.ResolveSecret(ctx, secrets, cfg.GeminiAPIKey, cfg.GeminiAPIKeySecret)
		if err != nil {
			return fmt.Errorf("resolving Gemini API key: %w", err)
		}

		gen := service.NewMetadataService(service.MetadataConfig{
			APIKey:  apiKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GeminiTimeout,
		}, metrics.Noop{}, logger)

		return metadata.Run(ctx, logger, pgmqClient, gen, repository.NewCatalogRepo(pool), metadata.Config{
			QueueName:           cfg.MetadataQueueName,
			DeadLetterQueueName: cfg.MetadataDeadLetterQueueName,
			PollTimeoutSec:      cfg.MetadataPollTimeoutSec,
			PollMaxMsg:          cfg.MetadataPollMaxMsg,
			MaxRetries:          cfg.MetadataMaxRetries,
		})
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Expire lapsed subscriptions on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := repository.NewPool(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		subs := service.NewSubscriptionService(repository.NewSubscriptionRepo(pool), cfg.SubscriptionGracePeriod, logger)
		s := scheduler.New(subs, cfg.SubscriptionExpirySchedule, logger)

		if runOnce {
			s.ExpireSubscriptions()
			return nil
		}
		if err := s.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		<-s.Stop().Done()
		logger.Info().Msg("Scheduler stopped gracefully")
		return nil
	},
}

func setup() (zerolog.Logger, *config.Config, error) {
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		return logger, nil, fmt.Errorf("loading config: %w", err)
	}
	return logger, cfg, nil
}

func init() {
	schedulerCmd.Flags().BoolVar(&runOnce, "once", false, "run the expiry job once and exit")
	rootCmd.AddCommand(metadataCmd, schedulerCmd)
}

func main() {
	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
