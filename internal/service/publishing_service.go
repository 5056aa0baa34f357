package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"storefront/internal/entitlement"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/pubsub"
	"storefront/internal/repository"
	"storefront/internal/storage"
	"storefront/internal/watermark"

	"github.com/rs/zerolog"
)

var defaultPatternFormats = []string{"AI", "EPS", "JPG", "PNG"}

// Master files with these extensions double as their own preview.
var imageMasterExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true}

// UploadFile is one file of a multipart publish request.
type UploadFile struct {
	Name        string
	ContentType string
	Body        io.ReadSeeker
}

// PublishRequest is an admin's new catalog entry.
type PublishRequest struct {
	AssetType   entitlement.AssetType
	Title       string
	Description string
	Category    string
	Tags        []string

	// Patterns only.
	Formats []string

	// Motion videos only.
	Duration   string
	Resolution string
	FPS        string
	IsLooping  bool
	HasAlpha   bool

	Master  *UploadFile
	Preview *UploadFile
}

// MetadataJob asks the metadata worker to fill in description and tags.
type MetadataJob struct {
	AssetID   string `json:"asset_id"`
	AssetType string `json:"asset_type"`
	Title     string `json:"title"`
	Category  string `json:"category"`
}

// MetadataQueue enqueues metadata jobs.
type MetadataQueue interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// PublishConfig names the buckets and queue used by the pipeline.
type PublishConfig struct {
	MastersBucket  string
	PreviewsBucket string
	MetadataQueue  string
}

// PublishingService turns an admin upload into a catalog entry.
type PublishingService interface {
	// Publish watermarks the preview, stores both files and inserts the catalog row.
	Publish(ctx context.Context, req PublishRequest) (*model.Asset, error)
	Delete(ctx context.Context, assetType entitlement.AssetType, id string) error
}

type publishingService struct {
	cfg     PublishConfig
	catalog repository.CatalogRepository
	blobs   storage.BlobStore
	queue   MetadataQueue
	events  EventPublisher
	metrics metrics.Metrics
	logger  zerolog.Logger
}

func NewPublishingService(
	cfg PublishConfig,
	catalog repository.CatalogRepository,
	blobs storage.BlobStore,
	queue MetadataQueue,
	events EventPublisher,
	m metrics.Metrics,
	logger zerolog.Logger,
) PublishingService {
	return &publishingService{
		cfg:     cfg,
		catalog: catalog,
		blobs:   blobs,
		queue:   queue,
		events:  events,
		metrics: m,
		logger:  logger.With().Str("service", "PublishingService").Logger(),
	}
}

func (s *publishingService) Publish(ctx context.Context, req PublishRequest) (*model.Asset, error) {
	asset, err := s.publish(ctx, req)
	s.metrics.RecordPublish(string(req.AssetType), err == nil)
	return asset, err
}

func (s *publishingService) publish(ctx context.Context, req PublishRequest) (*model.Asset, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Master == nil || req.Master.Body == nil {
		return nil, ErrMissingPublishInput
	}
	if req.Preview == nil || req.Preview.Body == nil {
		if !imageMasterExtensions[storage.Extension(req.Master.Name, "")] {
			return nil, ErrMissingPublishInput
		}
		req.Preview = req.Master
	}

	if _, err := req.Preview.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding preview: %w", err)
	}
	marked, err := watermark.Apply(req.Preview.Body)
	if err != nil {
		s.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to watermark preview")
		return nil, fmt.Errorf("%w: %v", ErrWatermarkFailed, err)
	}

	previewKey := storage.UploadKey(randomToken(10), watermark.PreviewName(req.Preview.Name))
	thumbnail, err := s.blobs.Upload(ctx, s.cfg.PreviewsBucket, previewKey, "image/jpeg", bytes.NewReader(marked))
	if err != nil {
		s.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to upload preview")
		return nil, fmt.Errorf("uploading preview: %w", err)
	}

	masterKey := storage.UploadKey(randomToken(10), req.Master.Name)
	contentType := req.Master.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := req.Master.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding master: %w", err)
	}
	downloadURL, err := s.blobs.Upload(ctx, s.cfg.MastersBucket, masterKey, contentType, req.Master.Body)
	if err != nil {
		s.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to upload master")
		s.removeObject(ctx, s.cfg.PreviewsBucket, thumbnail)
		return nil, fmt.Errorf("uploading master: %w", err)
	}

	tags := cleanTags(req.Tags)
	var asset *model.Asset
	switch req.AssetType {
	case entitlement.AssetPattern:
		formats := req.Formats
		if len(formats) == 0 {
			formats = defaultPatternFormats
		}
		p := &model.Pattern{
			ID:          newAssetID(),
			Title:       req.Title,
			Description: strings.TrimSpace(req.Description),
			Category:    req.Category,
			Status:      model.PatternStatusPublished,
			Thumbnail:   thumbnail,
			DownloadURL: downloadURL,
			Tags:        tags,
			Formats:     formats,
		}
		err = s.catalog.CreatePattern(ctx, p)
		asset = p.Asset()
	case entitlement.AssetMotion:
		m := &model.MotionVideo{
			ID:          newAssetID(),
			Title:       req.Title,
			Description: strings.TrimSpace(req.Description),
			Category:    req.Category,
			Duration:    req.Duration,
			Resolution:  req.Resolution,
			FPS:         req.FPS,
			Format:      strings.ToUpper(storage.Extension(req.Master.Name, "mp4")),
			Thumbnail:   thumbnail,
			PreviewURL:  thumbnail,
			DownloadURL: downloadURL,
			IsLooping:   req.IsLooping,
			HasAlpha:    req.HasAlpha,
			Tags:        tags,
		}
		err = s.catalog.CreateMotionVideo(ctx, m)
		asset = m.Asset()
	default:
		err = fmt.Errorf("unknown asset type %q", req.AssetType)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to insert catalog row")
		s.removeObject(ctx, s.cfg.PreviewsBucket, thumbnail)
		s.removeObject(ctx, s.cfg.MastersBucket, downloadURL)
		return nil, fmt.Errorf("creating catalog entry: %w", err)
	}

	if strings.TrimSpace(req.Description) == "" || len(tags) == 0 {
		s.enqueueMetadata(ctx, MetadataJob{AssetID: asset.ID, AssetType: string(asset.Type), Title: asset.Title, Category: req.Category})
	}
	s.publishEvent(ctx, pubsub.EventAssetPublished, pubsub.AssetEvent{AssetID: asset.ID, AssetType: string(asset.Type), Title: asset.Title})

	s.logger.Info().Str("asset_id", asset.ID).Str("asset_type", string(asset.Type)).Msg("Asset published")
	return asset, nil
}

func (s *publishingService) Delete(ctx context.Context, assetType entitlement.AssetType, id string) error {
	var asset *model.Asset
	switch assetType {
	case entitlement.AssetPattern:
		p, err := s.catalog.DeletePattern(ctx, id)
		if err != nil {
			return s.deleteErr(err, id)
		}
		asset = p.Asset()
	case entitlement.AssetMotion:
		m, err := s.catalog.DeleteMotionVideo(ctx, id)
		if err != nil {
			return s.deleteErr(err, id)
		}
		asset = m.Asset()
	default:
		return ErrAssetNotFound
	}

	s.removeObject(ctx, s.cfg.MastersBucket, asset.DownloadURL)
	s.removeObject(ctx, s.cfg.PreviewsBucket, asset.Thumbnail)
	s.publishEvent(ctx, pubsub.EventAssetDeleted, pubsub.AssetEvent{AssetID: asset.ID, AssetType: string(asset.Type), Title: asset.Title})
	return nil
}

func (s *publishingService) deleteErr(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAssetNotFound
	}
	s.logger.Error().Err(err).Str("asset_id", id).Msg("Failed to delete catalog row")
	return fmt.Errorf("deleting asset: %w", err)
}

// removeObject deletes the object behind a stored public URL. Failures are only logged.
func (s *publishingService) removeObject(ctx context.Context, bucket, publicURL string) {
	key, err := storage.ObjectKeyFromURL(publicURL, bucket)
	if err != nil {
		return
	}
	if err := s.blobs.Delete(ctx, bucket, key); err != nil {
		s.logger.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to delete object")
	}
}

func (s *publishingService) enqueueMetadata(ctx context.Context, job MetadataJob) {
	if s.queue == nil || s.cfg.MetadataQueue == "" {
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", job.AssetID).Msg("Failed to marshal metadata job")
		return
	}
	if err := s.queue.Send(ctx, s.cfg.MetadataQueue, payload); err != nil {
		s.logger.Error().Err(err).Str("asset_id", job.AssetID).Msg("Failed to enqueue metadata job")
	}
}

func (s *publishingService) publishEvent(ctx context.Context, eventType string, data any) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if _, err := s.events.PublishEvent(ctx, eventType, data); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish asset event")
	}
}

const (
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
	assetIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomToken(n int) string {
	return randomString(base36, n)
}

// newAssetID returns an 8-character uppercase alphanumeric id.
func newAssetID() string {
	return randomString(assetIDChars, 8)
}

func randomString(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	limit := big.NewInt(int64(len(alphabet)))
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		sb.WriteByte(alphabet[i.Int64()])
	}
	return sb.String()
}
