package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/entitlement"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/pubsub"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/rs/zerolog"
)

// Outcome is the state a download request ends in.
type Outcome string

const (
	OutcomeReady                Outcome = "ready"
	OutcomeSignInRequired       Outcome = "sign_in_required"
	OutcomeVerificationRequired Outcome = "verification_required"
	OutcomeSuspended            Outcome = "suspended"
	OutcomeDenied               Outcome = "denied"
)

const (
	signInRedirect       = "/login"
	verificationRedirect = "/verify-email"
	suspendedMessage     = "Your account has been suspended. Please contact support."
)

// DownloadResult describes an orchestrated download. URL and Filename are set
// only by Download when the outcome is ready.
type DownloadResult struct {
	Outcome  Outcome
	URL      string
	Filename string
	Redirect string
	Reason   entitlement.Reason
	Message  string
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, data any) (string, error)
}

// DownloadConfig holds the storage settings used to issue transfer handles.
type DownloadConfig struct {
	MastersBucket string
	SignedURLTTL  time.Duration
}

// DownloadService gates downloads behind entitlement and records admitted ones in the usage ledger.
type DownloadService interface {
	// Download issues a time-limited transfer handle and appends exactly one ledger
	// entry when the caller is entitled to the asset.
	Download(ctx context.Context, session *model.Session, assetType entitlement.AssetType, assetID, clientIP string) (*DownloadResult, error)
	// CheckEntitlement evaluates the same preconditions without side effects.
	CheckEntitlement(ctx context.Context, session *model.Session, assetType entitlement.AssetType, assetID string) (*DownloadResult, error)
}

type downloadService struct {
	cfg      DownloadConfig
	identity IdentityService
	profiles repository.ProfileRepository
	catalog  CatalogService
	subs     repository.SubscriptionRepository
	ledger   repository.DownloadLogRepository
	blobs    storage.BlobStore
	events   EventPublisher
	metrics  metrics.Metrics
	logger   zerolog.Logger
}

func NewDownloadService(
	cfg DownloadConfig,
	identity IdentityService,
	profiles repository.ProfileRepository,
	catalog CatalogService,
	subs repository.SubscriptionRepository,
	ledger repository.DownloadLogRepository,
	blobs storage.BlobStore,
	events EventPublisher,
	m metrics.Metrics,
	logger zerolog.Logger,
) DownloadService {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = time.Hour
	}
	return &downloadService{
		cfg:      cfg,
		identity: identity,
		profiles: profiles,
		catalog:  catalog,
		subs:     subs,
		ledger:   ledger,
		blobs:    blobs,
		events:   events,
		metrics:  m,
		logger:   logger.With().Str("service", "DownloadService").Logger(),
	}
}

// admission is the result of the shared precondition checks.
type admission struct {
	result *DownloadResult
	asset  *model.Asset
	plan   entitlement.Plan
}

func (s *downloadService) admit(ctx context.Context, session *model.Session, assetType entitlement.AssetType, assetID string) (*admission, error) {
	if session == nil || session.UserID == "" {
		return &admission{result: &DownloadResult{Outcome: OutcomeSignInRequired, Redirect: signInRedirect}}, nil
	}
	if !s.emailVerified(ctx, session) {
		return &admission{result: &DownloadResult{Outcome: OutcomeVerificationRequired, Redirect: verificationRedirect}}, nil
	}

	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to read profile for download")
		return nil, fmt.Errorf("%w: %v", ErrEntitlementUnavailable, err)
	}
	if profile != nil && profile.IsSuspended {
		return &admission{result: &DownloadResult{Outcome: OutcomeSuspended, Message: suspendedMessage}}, nil
	}

	asset, err := s.catalog.GetAsset(ctx, assetType, assetID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.GetByUserID(ctx, session.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to read subscription for download")
		return nil, fmt.Errorf("%w: %v", ErrEntitlementUnavailable, err)
	}
	logs, err := s.ledger.ListByUser(ctx, session.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to read usage ledger for download")
		return nil, fmt.Errorf("%w: %v", ErrEntitlementUnavailable, err)
	}

	esub := sub.Entitlement()
	plan, _ := entitlement.Resolve(esub)
	decision := entitlement.CanDownload(esub, model.LedgerEntries(logs), asset.ID, assetType)
	s.metrics.RecordEntitlementDecision(plan.String(), string(assetType), decision.Allow, string(decision.Reason))
	if !decision.Allow {
		return &admission{
			result: &DownloadResult{Outcome: OutcomeDenied, Reason: decision.Reason, Message: decision.Reason.Message()},
			asset:  asset,
			plan:   plan,
		}, nil
	}
	return &admission{result: &DownloadResult{Outcome: OutcomeReady}, asset: asset, plan: plan}, nil
}

// emailVerified trusts a verified claim and otherwise asks the identity provider,
// since the address may have been confirmed after the token was issued.
func (s *downloadService) emailVerified(ctx context.Context, session *model.Session) bool {
	if session.EmailVerified {
		return true
	}
	if session.AccessToken == "" || s.identity == nil {
		return false
	}
	user, err := s.identity.GetUser(ctx, session.AccessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to recheck email verification")
		return false
	}
	return user.EmailVerified()
}

func (s *downloadService) CheckEntitlement(ctx context.Context, session *model.Session, assetType entitlement.AssetType, assetID string) (*DownloadResult, error) {
	adm, err := s.admit(ctx, session, assetType, assetID)
	if err != nil {
		return nil, err
	}
	return adm.result, nil
}

func (s *downloadService) Download(ctx context.Context, session *model.Session, assetType entitlement.AssetType, assetID, clientIP string) (*DownloadResult, error) {
	adm, err := s.admit(ctx, session, assetType, assetID)
	if err != nil {
		s.metrics.RecordDownload(string(assetType), "error")
		return nil, err
	}
	if adm.result.Outcome != OutcomeReady {
		s.metrics.RecordDownload(string(assetType), string(adm.result.Outcome))
		return adm.result, nil
	}
	asset := adm.asset

	filename := storage.DownloadFilename(asset.Title, asset.DownloadURL)
	if asset.Type == entitlement.AssetMotion {
		filename = storage.MotionDownloadFilename(asset.Title, asset.Format, asset.DownloadURL)
	}
	key, err := storage.ObjectKeyFromURL(asset.DownloadURL, s.cfg.MastersBucket)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", asset.ID).Msg("Stored master URL has no object key")
		s.metrics.RecordDownload(string(assetType), "interrupted")
		return nil, fmt.Errorf("%w: %v", ErrTransferInterrupted, err)
	}

	start := time.Now()
	url, err := s.blobs.SignedURL(ctx, s.cfg.MastersBucket, key, filename, s.cfg.SignedURLTTL)
	s.metrics.RecordSignedURL(time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", session.UserID).Str("asset_id", asset.ID).Msg("Failed to issue transfer handle")
		s.metrics.RecordDownload(string(assetType), "interrupted")
		return nil, fmt.Errorf("%w: %v", ErrTransferInterrupted, err)
	}

	entry := &model.DownloadLog{
		UserID:    session.UserID,
		AssetID:   asset.ID,
		AssetType: string(assetType),
	}
	if clientIP != "" {
		entry.IP = &clientIP
	}
	evt := pubsub.DownloadEvent{UserID: session.UserID, AssetID: asset.ID, AssetType: string(assetType), Plan: adm.plan.String()}
	if err := s.ledger.Append(ctx, entry); err != nil {
		// The transfer handle is already issued; the download still succeeds.
		s.logger.Error().Err(err).Str("user_id", session.UserID).Str("asset_id", asset.ID).Msg("Failed to append usage ledger entry")
		s.metrics.RecordLedgerAppendFailure(string(assetType))
		evt.Error = err.Error()
		s.publish(ctx, pubsub.EventDownloadUnlogged, evt)
	} else {
		s.publish(ctx, pubsub.EventDownloadCompleted, evt)
	}
	s.metrics.RecordDownload(string(assetType), string(OutcomeReady))

	return &DownloadResult{Outcome: OutcomeReady, URL: url, Filename: filename}, nil
}

func (s *downloadService) publish(ctx context.Context, eventType string, data any) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if _, err := s.events.PublishEvent(ctx, eventType, data); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish download event")
	}
}
