// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelf/internal/config"
	applog "github.com/mrlokans/shelf/internal/logger"
)

// PurgeSchedule runs the delivered-request purge daily at 03:00.
const PurgeSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// RequestSweeper redelivers stuck book requests and purges delivered ones.
type RequestSweeper interface {
	Sweep(ctx context.Context) (int, error)
	PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error)
}

// PurgeEnqueuer hands the purge to the task queue.
type PurgeEnqueuer interface {
	EnqueuePurge(ctx context.Context, retention time.Duration) error
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// RequestScheduler periodically sweeps undelivered book requests and
// purges delivered ones past retention.
type RequestScheduler struct {
	sweeper   RequestSweeper
	purges    PurgeEnqueuer
	schedule  string
	retention time.Duration
	log       *logrus.Entry

	cron       *cron.Cron
	sweepEntry cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
}

// NewRequestScheduler creates a scheduler. A nil purges runs the purge
// inline instead of enqueueing it.
func NewRequestScheduler(sweeper RequestSweeper, purges PurgeEnqueuer, cfg config.Requests) *RequestScheduler {
	return &RequestScheduler{
		sweeper:   sweeper,
		purges:    purges,
		schedule:  cfg.SweepSchedule,
		retention: cfg.Retention,
		log:       applog.WithComponent("scheduler"),
		cron:      cron.New(cron.WithParser(parser)),
	}
}

// Start registers both jobs and starts the cron runner. It stops when ctx
// is cancelled. An empty schedule disables the scheduler.
func (s *RequestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		s.log.Info("Request sweep scheduler: disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.RunSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule request sweep: %w", err)
	}
	s.sweepEntry = entryID

	if s.retention > 0 {
		if _, err := s.cron.AddFunc(PurgeSchedule, s.RunPurge); err != nil {
			return fmt.Errorf("failed to schedule request purge: %w", err)
		}
	}

	s.cron.Start()
	s.isRunning = true
	s.log.WithField("schedule", s.schedule).Info("Request sweep scheduler: started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (s *RequestScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	// Running jobs take s.mu when they finish, so wait without holding it.
	<-s.cron.Stop().Done()
	s.log.Info("Request sweep scheduler: stopped")
}

func (s *RequestScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextSweep returns when the next sweep will occur, or nil when stopped.
func (s *RequestScheduler) NextSweep() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.sweepEntry {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunSweep performs one sweep. Overlapping runs are skipped.
func (s *RequestScheduler) RunSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		s.log.Debug("Request sweep: skipped (already sweeping)")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Error("Request sweep failed")
		return
	}
	s.log.WithField("rescheduled", n).Debug("Request sweep finished")
}

// RunPurge removes delivered requests past retention.
func (s *RequestScheduler) RunPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if s.purges != nil {
		if err := s.purges.EnqueuePurge(ctx, s.retention); err != nil {
			s.log.WithError(err).Error("Failed to enqueue request purge")
		}
		return
	}

	deleted, err := s.sweeper.PurgeDelivered(ctx, s.retention)
	if err != nil {
		s.log.WithError(err).Error("Request purge failed")
		return
	}
	s.log.WithField("deleted", deleted).Info("Purged delivered book requests")
}
