package scheduler

import (
	"context"
	"time"

	"example.com/disasterwatch/services/alerts/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Syncer runs the feed reconciliation passes
type Syncer interface {
	SyncAlerts(ctx context.Context) (services.AlertSyncResult, error)
	SyncEvents(ctx context.Context) (services.EventSyncResult, error)
}

// Scheduler drives the periodic feed sync
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
}

func New(syncer Syncer, interval time.Duration) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
	}
}

// Run starts the periodic sync job and blocks until the context is
// cancelled. The first run fires immediately so a fresh deployment does
// not wait a full interval for data.
func (s *Scheduler) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "creating scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.runSync(ctx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return errors.Wrap(err, "registering sync job")
	}

	log.Info().Dur("interval", s.interval).Msg("Starting feed sync scheduler")
	scheduler.Start()

	// Wait for context cancellation
	<-ctx.Done()

	return scheduler.Shutdown()
}

func (s *Scheduler) runSync(ctx context.Context) {
	log.Info().Msg("Running scheduled feed sync")

	if result, err := s.syncer.SyncAlerts(ctx); err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			log.Warn().Msg("Skipping scheduled alert sync, another run is in progress")
		} else {
			log.Error().Err(err).Msg("Scheduled alert sync failed")
		}
	} else {
		log.Info().
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Int("skipped", result.Skipped).
			Msg("Scheduled alert sync finished")
	}

	if result, err := s.syncer.SyncEvents(ctx); err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			log.Warn().Msg("Skipping scheduled event sync, another run is in progress")
		} else {
			log.Error().Err(err).Msg("Scheduled event sync failed")
		}
	} else {
		log.Info().
			Int("processed", result.Processed).
			Int("skipped", result.Skipped).
			Msg("Scheduled event sync finished")
	}
}
