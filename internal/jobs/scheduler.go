// Package jobs runs background work on a cron schedule.
// scheduler.go wires the order sweeps: expiry first, then orphaned uploads.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper is the part of the order lifecycle the scheduler drives.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

type Scheduler struct {
	cron        *cron.Cron
	sweeper     Sweeper
	spec        string
	orphanGrace time.Duration
	timeout     time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler builds a scheduler in loc. An empty spec disables it.
func NewScheduler(sweeper Sweeper, spec string, orphanGrace time.Duration, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		sweeper:     sweeper,
		spec:        spec,
		orphanGrace: orphanGrace,
		timeout:     2 * time.Minute,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		log.Info("[CRON] sweep schedule is empty, scheduler disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.WithField("schedule", s.spec).Info("[CRON] scheduler started")
	return nil
}

// RunOnce performs one sweep. Overlapping runs are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn("[CRON] previous sweep still running, skipped")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expired, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] expiry sweep failed")
	}
	orphans, err := s.sweeper.SweepOrphans(ctx, s.orphanGrace)
	if err != nil {
		log.WithError(err).Error("[CRON] orphan sweep failed")
	}
	if expired > 0 || orphans > 0 {
		log.WithFields(log.Fields{"expired": expired, "orphans": orphans}).Info("[CRON] sweep done")
	}
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("[CRON] scheduler stopped")
}
