package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/api/v1/handler"
	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/pgmq"
	"storefront/internal/pubsub"
	"storefront/internal/ratelimit"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const metricsNamespace = "storefront"

// New wires every dependency and returns the root HTTP handler. cleanup releases
// the clients New opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, nil, err
	}

	secrets, closeSecrets, err := service.NewSecretManagerStore(ctx, cfg)
	if err != nil {
		// Secrets may all be provided directly in the environment.
		logger.Warn().Err(err).Msg("Secret Manager unavailable, using environment values only")
		secrets = nil
	} else {
		closers = append(closers, func() { _ = closeSecrets() })
	}
	geminiKey, err := service.ResolveSecret(ctx, secrets, cfg.GeminiAPIKey, cfg.GeminiAPIKeySecret)
	if err != nil {
		return fail(fmt.Errorf("resolving Gemini API key: %w", err))
	}
	checkoutKey, err := service.ResolveSecret(ctx, secrets, cfg.CheckoutSecretKey, cfg.CheckoutSecretKeySecret)
	if err != nil {
		return fail(fmt.Errorf("resolving 2Checkout secret key: %w", err))
	}
	if checkoutKey == "" {
		if !cfg.IsDevelopment() {
			return fail(errors.New("2Checkout secret key is required outside development"))
		}
		logger.Warn().Msg("2Checkout secret key not configured, IPN signatures will not be verified")
	}

	pool, err := repository.NewPool(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, pool.Close)

	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to create S3 client: %w", err))
	}
	blobs := storage.NewS3Store(s3Client, cfg.SupabaseURL, logger)

	publisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = publisher.Close() })
	assetEvents := pubsub.NewEventPublisher(publisher, cfg.PubSubAssetTopic)
	downloadEvents := pubsub.NewEventPublisher(publisher, cfg.PubSubDownloadTopic)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPrometheus(registry, metricsNamespace)

	var downloadLimiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("parsing REDIS_URL: %w", err))
		}
		rdb := redis.NewClient(opts)
		closers = append(closers, func() { _ = rdb.Close() })
		downloadLimiter = ratelimit.NewRedisLimiter(rdb, "ratelimit", cfg.DownloadRateLimit, cfg.DownloadRateWindow)
	} else {
		downloadLimiter = ratelimit.NewWindowMemoryLimiter(ctx, cfg.DownloadRateLimit, cfg.DownloadRateWindow)
	}
	authLimiter := ratelimit.NewMemoryLimiter(ctx, cfg.AuthRateRPS, cfg.AuthRateBurst)

	// Repositories
	profileRepo := repository.NewProfileRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	downloadLogRepo := repository.NewDownloadLogRepo(pool)
	catalogRepo := repository.NewCatalogRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	// Services
	identityService := service.NewIdentityService(cfg.SupabaseURL, cfg.SupabaseAnonKey, profileRepo, logger)
	catalogService := service.NewCatalogService(catalogRepo, logger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, cfg.SubscriptionGracePeriod, logger)
	downloadService := service.NewDownloadService(
		service.DownloadConfig{MastersBucket: cfg.MastersBucket, SignedURLTTL: cfg.SignedURLTTL},
		identityService, profileRepo, catalogService, subscriptionRepo, downloadLogRepo,
		blobs, downloadEvents, m, logger,
	)
	metadataService := service.NewMetadataService(service.MetadataConfig{
		APIKey:  geminiKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	}, m, logger)
	publishingService := service.NewPublishingService(
		service.PublishConfig{
			MastersBucket:  cfg.MastersBucket,
			PreviewsBucket: cfg.PreviewsBucket,
			MetadataQueue:  cfg.MetadataQueueName,
		},
		catalogRepo, blobs, pgmq.New(pool), assetEvents, m, logger,
	)
	userService := service.NewUserService(profileRepo, subscriptionService, downloadLogRepo, logger)
	adminService := service.NewAdminService(profileRepo, subscriptionRepo, downloadLogRepo, logger)
	checkoutService := service.NewCheckoutService(checkoutKey, subscriptionService, m, logger)
	dlqService := service.NewDLQService(dlqRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(identityService, logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	downloadHandler := handler.NewDownloadHandler(downloadService, logger)
	adminHandler := handler.NewAdminHandler(adminService, publishingService, metadataService, logger)
	dlqHandler := handler.NewDLQHandler(dlqService, logger)

	mw := Middlewares{
		Auth:         middleware.AuthMiddleware(cfg.JWTSecret, logger),
		OptionalAuth: middleware.OptionalAuthMiddleware(cfg.JWTSecret, logger),
		PubSubAuth: middleware.PubSubAuthMiddleware(middleware.PubSubAuthConfig{
			SkipAuth:      cfg.PubSubEmulatorHost != "",
			Audience:      cfg.DLQEndpointURL,
			ExpectedEmail: cfg.PubSubPushServiceAccountEmail,
		}, logger),
		AuthRateLimit: middleware.RateLimitMiddleware(authLimiter, "auth", middleware.ByClientIP, m, logger),
		DownloadLimit: middleware.RateLimitMiddleware(downloadLimiter, "downloads", middleware.BySessionOrIP, m, logger),
	}
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	chiRouter, api := SetupHumaAPI(cfg, mw, checkoutService.HandleWebhook, metricsHandler, logger)
	RegisterRoutes(api, authHandler, catalogHandler, userHandler, downloadHandler, adminHandler, dlqHandler, logger)

	// Define allowed origins
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173", "https://elymand.com", "https://www.elymand.com"}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: true,
	})

	var h http.Handler = chiRouter
	h = middleware.ClientIPMiddleware(h)
	h = middleware.LoggerMiddleware(logger)(h)
	h = c.Handler(h)
	return h, cleanup, nil
}
