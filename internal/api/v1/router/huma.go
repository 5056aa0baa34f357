package router

import (
	"net/http"
	"os"
	"strings"

	"storefront/internal/api/v1/handler"
	"storefront/internal/config"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Middlewares are the per-path wrappers chosen by SetupHumaAPI.
type Middlewares struct {
	Auth          func(http.Handler) http.Handler
	OptionalAuth  func(http.Handler) http.Handler
	PubSubAuth    func(http.Handler) http.Handler
	AuthRateLimit func(http.Handler) http.Handler
	DownloadLimit func(http.Handler) http.Handler
}

func isPublicPath(path string) bool {
	switch path {
	case "/openapi.json", "/openapi.yaml", "/docs", "/metrics", "/healthz", "/webhooks/checkout":
		return true
	}
	return path == "/catalog" || strings.HasPrefix(path, "/catalog/") || strings.HasPrefix(path, "/schemas")
}

// SetupHumaAPI creates a Huma API instance
func SetupHumaAPI(
	cfg *config.Config,
	mw Middlewares,
	webhook http.HandlerFunc,
	metricsHandler http.Handler,
	logger zerolog.Logger,
) (*chi.Mux, huma.API) {
	// Create Chi router for Huma adapter
	chiRouter := chi.NewRouter()

	// Apply middleware based on path
	chiRouter.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			switch {
			case isPublicPath(path):
				next.ServeHTTP(w, r)
			case path == "/auth/sign-in" || path == "/auth/sign-up":
				mw.AuthRateLimit(next).ServeHTTP(w, r)
			case path == "/downloads":
				// Anonymous callers get a sign-in outcome, so auth is optional here.
				mw.OptionalAuth(mw.DownloadLimit(next)).ServeHTTP(w, r)
			case strings.HasPrefix(path, "/entitlements/"):
				mw.OptionalAuth(next).ServeHTTP(w, r)
			case path == "/dlq/record":
				mw.PubSubAuth(next).ServeHTTP(w, r)
			default:
				mw.Auth(next).ServeHTTP(w, r)
			}
		})
	})

	// Get version from environment or default to development
	version := os.Getenv("GIT_COMMIT_SHA")
	if version == "" {
		version = "development"
	}

	humaConfig := huma.DefaultConfig("Elymand Storefront API v1", version)
	humaConfig.Info.Description = "Catalog, entitlement-gated downloads and publishing for the Elymand asset store"
	humaConfig.Servers = []*huma.Server{{URL: cfg.APIBaseURL}}

	// Create Huma API with Chi adapter
	api := humachi.New(chiRouter, humaConfig)

	// The IPN hash is computed over the raw form in field order, so the webhook
	// bypasses Huma's body parsing. It answers 405 itself for other methods.
	chiRouter.HandleFunc("/webhooks/checkout", webhook)
	chiRouter.Method(http.MethodGet, "/metrics", metricsHandler)
	chiRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info().Msg("Huma API initialized for /v1")
	logger.Info().Str("version", version).Msg("OpenAPI spec version")
	logger.Info().Msg("Checkout webhook mounted at /webhooks/checkout")

	return chiRouter, api
}

const maxUploadBytes = 512 << 20

// RegisterRoutes registers all Huma operations
func RegisterRoutes(
	api huma.API,
	authHandler *handler.AuthHandler,
	catalogHandler *handler.CatalogHandler,
	userHandler *handler.UserHandler,
	downloadHandler *handler.DownloadHandler,
	adminHandler *handler.AdminHandler,
	dlqHandler *handler.DLQHandler,
	logger zerolog.Logger,
) {
	logger.Info().Msg("Registering routes")

	// ========== AUTH OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/auth/sign-in",
		Summary:     "Sign in",
		Description: "Exchanges email and password for an access token",
		Tags:        []string{"auth"},
	}, authHandler.SignIn)

	huma.Register(api, huma.Operation{
		OperationID:   "signUp",
		Method:        http.MethodPost,
		Path:          "/auth/sign-up",
		Summary:       "Sign up",
		Description:   "Registers an account and creates its profile. No token is returned until the email is confirmed",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, authHandler.SignUp)

	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/auth/session",
		Summary:     "Get current session",
		Description: "Returns the authenticated caller with the email verification state refreshed",
		Tags:        []string{"auth"},
	}, authHandler.CurrentSession)

	// ========== CATALOG OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listCatalog",
		Method:      http.MethodGet,
		Path:        "/catalog",
		Summary:     "List catalog",
		Description: "Lists published patterns and motion videos, newest first",
		Tags:        []string{"catalog"},
	}, catalogHandler.ListCatalog)

	huma.Register(api, huma.Operation{
		OperationID: "listPatterns",
		Method:      http.MethodGet,
		Path:        "/catalog/patterns",
		Summary:     "List patterns",
		Tags:        []string{"catalog"},
	}, catalogHandler.ListPatterns)

	huma.Register(api, huma.Operation{
		OperationID: "getPattern",
		Method:      http.MethodGet,
		Path:        "/catalog/patterns/{assetId}",
		Summary:     "Get a pattern",
		Tags:        []string{"catalog"},
	}, catalogHandler.GetPattern)

	huma.Register(api, huma.Operation{
		OperationID: "listMotionVideos",
		Method:      http.MethodGet,
		Path:        "/catalog/motion-videos",
		Summary:     "List motion videos",
		Tags:        []string{"catalog"},
	}, catalogHandler.ListMotionVideos)

	huma.Register(api, huma.Operation{
		OperationID: "getMotionVideo",
		Method:      http.MethodGet,
		Path:        "/catalog/motion-videos/{assetId}",
		Summary:     "Get a motion video",
		Tags:        []string{"catalog"},
	}, catalogHandler.GetMotionVideo)

	// ========== USER OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "getMe",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get account",
		Description: "Retrieves the profile, subscription and quota usage of the authenticated user",
		Tags:        []string{"users"},
	}, userHandler.GetMe)

	huma.Register(api, huma.Operation{
		OperationID: "updateMe",
		Method:      http.MethodPut,
		Path:        "/users/me",
		Summary:     "Update profile",
		Description: "Updates the display name and avatar of the authenticated user",
		Tags:        []string{"users"},
	}, userHandler.UpdateMe)

	huma.Register(api, huma.Operation{
		OperationID: "listMyDownloads",
		Method:      http.MethodGet,
		Path:        "/users/me/downloads",
		Summary:     "List my downloads",
		Description: "Returns the download history of the authenticated user, newest first",
		Tags:        []string{"users"},
	}, userHandler.ListMyDownloads)

	huma.Register(api, huma.Operation{
		OperationID:   "cancelSubscription",
		Method:        http.MethodPost,
		Path:          "/subscriptions/me/cancel",
		Summary:       "Cancel subscription",
		Description:   "Flags the subscription for cancellation. Access continues until the end of the billing period",
		Tags:          []string{"subscriptions"},
		DefaultStatus: http.StatusNoContent,
	}, userHandler.CancelSubscription)

	// ========== DOWNLOAD OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "checkEntitlement",
		Method:      http.MethodGet,
		Path:        "/entitlements/{assetType}/{assetId}",
		Summary:     "Check entitlement",
		Description: "Reports whether the caller may download the asset without issuing a transfer or recording usage",
		Tags:        []string{"downloads"},
	}, downloadHandler.CheckEntitlement)

	huma.Register(api, huma.Operation{
		OperationID: "download",
		Method:      http.MethodPost,
		Path:        "/downloads",
		Summary:     "Download an asset",
		Description: "Issues a time-limited URL for the asset's master file and records the download",
		Tags:        []string{"downloads"},
	}, downloadHandler.Download)

	// ========== ADMIN OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "generateMetadata",
		Method:      http.MethodPost,
		Path:        "/admin/metadata",
		Summary:     "Generate asset metadata",
		Description: "Drafts a description and tags for a title. Falls back to generic copy when generation fails",
		Tags:        []string{"admin"},
	}, adminHandler.GenerateMetadata)

	huma.Register(api, huma.Operation{
		OperationID:   "publishPattern",
		Method:        http.MethodPost,
		Path:          "/admin/patterns",
		Summary:       "Publish a pattern",
		Description:   "Uploads the master package and a preview image. The preview is watermarked before it is stored",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxUploadBytes,
	}, adminHandler.PublishPattern)

	huma.Register(api, huma.Operation{
		OperationID:   "publishMotionVideo",
		Method:        http.MethodPost,
		Path:          "/admin/motion-videos",
		Summary:       "Publish a motion video",
		Description:   "Uploads the master clip and a preview image. The preview is watermarked before it is stored",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxUploadBytes,
	}, adminHandler.PublishMotionVideo)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteAsset",
		Method:        http.MethodDelete,
		Path:          "/admin/{assetType}/{assetId}",
		Summary:       "Delete an asset",
		Description:   "Deletes the catalog entry and its stored files",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusNoContent,
	}, adminHandler.DeleteAsset)

	huma.Register(api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List members",
		Tags:        []string{"admin"},
	}, adminHandler.ListUsers)

	huma.Register(api, huma.Operation{
		OperationID:   "setSuspension",
		Method:        http.MethodPut,
		Path:          "/admin/users/{userId}/suspension",
		Summary:       "Suspend or reinstate a member",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusNoContent,
	}, adminHandler.SetSuspension)

	huma.Register(api, huma.Operation{
		OperationID: "listDownloadLogs",
		Method:      http.MethodGet,
		Path:        "/admin/logs",
		Summary:     "List download logs",
		Tags:        []string{"admin"},
	}, adminHandler.ListLogs)

	// ========== DLQ OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "recordDLQ",
		Method:      http.MethodPost,
		Path:        "/dlq/record",
		Summary:     "Record DLQ message",
		Description: "Records a dead letter queue message from Pub/Sub",
		Tags:        []string{"dlq"},
	}, dlqHandler.RecordDLQ)

	logger.Info().Msg("All operations registered successfully")
	logger.Info().Int("total_operations", 22).Msg("Total registered operations")
}
