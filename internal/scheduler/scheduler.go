package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-planner/internal/log"
	"github.com/i474232898/weather-planner/internal/weather"
)

// Refresher refreshes the capability catalog.
type Refresher interface {
	Refresh(ctx context.Context) weather.CapabilitySnapshot
}

// Scheduler keeps the capability catalog warm so request paths rarely pay
// for a probe.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(refresher Refresher, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start runs the refresh immediately and then every interval.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).StartImmediately().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	snap := s.refresher.Refresh(ctx)
	if snap.Status == weather.SnapshotDegraded {
		log.Warnw("scheduler: capability refresh failed", "error", snap.Err)
		return
	}
	log.Infow("scheduler: capabilities refreshed", "variables", len(snap.Capabilities.Variables))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
