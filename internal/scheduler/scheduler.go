// Package scheduler runs the periodic subscription maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SubscriptionExpirer deactivates subscriptions whose billing period has lapsed.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	subs     SubscriptionExpirer
	schedule string
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a scheduler that runs the subscription expiry job on schedule
// (standard cron syntax or descriptors such as "@hourly").
func New(subs SubscriptionExpirer, schedule string, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(&logger))))
	return &Scheduler{
		cron:     c,
		subs:     subs,
		schedule: schedule,
		timeout:  5 * time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.ExpireSubscriptions); err != nil {
		s.logger.Error().Err(err).Str("schedule", s.schedule).Msg("Failed to schedule subscription expiry job")
		return err
	}
	s.logger.Info().Str("schedule", s.schedule).Msg("Scheduled subscription expiry job")
	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ExpireSubscriptions is the body of the expiry job.
func (s *Scheduler) ExpireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := s.now()
	n, err := s.subs.ExpireLapsed(ctx, start.UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("Subscription expiry job failed")
		return
	}
	s.logger.Info().Int64("expired", n).Dur("took", time.Since(start)).Msg("Subscription expiry job finished")
}
