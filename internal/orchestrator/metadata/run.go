package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront/internal/entitlement"
	"storefront/internal/model"
	"storefront/internal/pgmq"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// Queue is the part of the pgmq client the orchestrator uses.
type Queue interface {
	Send(ctx context.Context, queue string, payload []byte) error
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, pollSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
}

// MetadataWriter stores generated copy on a catalog row.
type MetadataWriter interface {
	UpdateMetadata(ctx context.Context, assetType entitlement.AssetType, id string, md model.AssetMetadata) error
}

type Config struct {
	QueueName           string
	DeadLetterQueueName string
	VisibilitySec       int
	PollTimeoutSec      int
	PollMaxMsg          int
	MaxRetries          int
}

// Run starts the metadata orchestrator.
func Run(ctx context.Context, logger zerolog.Logger, client Queue, gen service.MetadataService, writer MetadataWriter, cfg Config) error {
	if cfg.VisibilitySec <= 0 {
		cfg.VisibilitySec = 60
	}
	logger = logger.With().Str("orchestrator", "metadata").Str("queue", cfg.QueueName).Logger()
	logger.Info().Msg("Starting metadata orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down metadata orchestrator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, cfg.QueueName, cfg.VisibilitySec, cfg.PollTimeoutSec, cfg.PollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading metadata queue")
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range msgs {
			Process(ctx, logger, client, gen, writer, cfg, msg)
		}
	}
}

// Process handles one job. Jobs that keep failing are moved to the dead-letter queue
// after MaxRetries reads; otherwise a failed job becomes visible again after the
// visibility timeout.
func Process(ctx context.Context, logger zerolog.Logger, client Queue, gen service.MetadataService, writer MetadataWriter, cfg Config, msg *pgmq.Message) {
	log := logger.With().Int64("msg_id", msg.ID).Int("read_count", msg.ReadCount).Logger()

	if cfg.MaxRetries > 0 && msg.ReadCount > cfg.MaxRetries {
		deadLetter(ctx, log, client, cfg, msg, "max retries exceeded")
		return
	}

	job, assetType, err := decodeJob(msg.Data)
	if err != nil {
		log.Error().Err(err).Msg("Undecodable metadata job")
		deadLetter(ctx, log, client, cfg, msg, err.Error())
		return
	}
	log = log.With().Str("asset_id", job.AssetID).Logger()

	md := gen.Generate(ctx, job.Title, job.Category)
	if err := writer.UpdateMetadata(ctx, assetType, job.AssetID, md); err != nil {
		log.Error().Err(err).Msg("Failed to store generated metadata, will retry")
		return
	}
	if err := client.Delete(ctx, cfg.QueueName, []int64{msg.ID}); err != nil {
		log.Error().Err(err).Msg("Error deleting metadata message")
		return
	}
	log.Info().Int("tags", len(md.Tags)).Msg("Metadata job completed")
}

func decodeJob(data []byte) (service.MetadataJob, entitlement.AssetType, error) {
	var job service.MetadataJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, "", fmt.Errorf("decode metadata job: %w", err)
	}
	if strings.TrimSpace(job.AssetID) == "" {
		return job, "", fmt.Errorf("metadata job has no asset id")
	}
	t, ok := entitlement.ParseAssetType(job.AssetType)
	if !ok {
		return job, "", fmt.Errorf("metadata job has unknown asset type %q", job.AssetType)
	}
	return job, t, nil
}

func deadLetter(ctx context.Context, log zerolog.Logger, client Queue, cfg Config, msg *pgmq.Message, reason string) {
	if cfg.DeadLetterQueueName != "" {
		payload, err := json.Marshal(map[string]any{
			"msg_id":     msg.ID,
			"read_count": msg.ReadCount,
			"reason":     reason,
			"message":    json.RawMessage(validJSON(msg.Data)),
		})
		if err == nil {
			err = client.Send(ctx, cfg.DeadLetterQueueName, payload)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to move metadata job to dead-letter queue")
			return
		}
	}
	if err := client.Delete(ctx, cfg.QueueName, []int64{msg.ID}); err != nil {
		log.Error().Err(err).Msg("Error deleting dead-lettered metadata message")
		return
	}
	log.Warn().Str("reason", reason).Msg("Metadata job dead-lettered")
}

func validJSON(data []byte) []byte {
	if json.Valid(data) {
		return data
	}
	b, _ := json.Marshal(string(data))
	return b
}
