package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Refresher is what the scheduler keeps warm: the raw station-list
// document held by the upstream client.
type Refresher interface {
	RefreshStationList(ctx context.Context) error
}

// Scheduler periodically refreshes the raw station list so the first
// query after TTL expiry does not pay the upstream fetch latency.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a Scheduler refreshing every interval.
func New(refresher Refresher, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// A failed refresh is logged and retried on the next tick; the stale
// document stays usable meanwhile.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := s.refresher.RefreshStationList(ctx); err != nil {
			s.log.Warnw("station list refresh failed", "error", err)
			return
		}
		s.log.Infow("station list refreshed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
