package workers

import (
	"context"
	"log"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
)

// Scheduler is the beat process: it enqueues the recurring poll fan-out and
// prunes finished jobs.
type Scheduler struct {
	jobService    jobs.Service
	pollInterval  time.Duration
	retentionDays int
}

// NewScheduler creates a scheduler.
func NewScheduler(jobService jobs.Service, pollInterval time.Duration, retentionDays int) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &Scheduler{
		jobService:    jobService,
		pollInterval:  pollInterval,
		retentionDays: retentionDays,
	}
}

// Run blocks until the context is cancelled, firing the poll fan-out on its
// interval (plus once at startup) and the janitor hourly.
func (s *Scheduler) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	s.enqueuePoll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollTicker.C:
			s.enqueuePoll(ctx)
		case <-cleanupTicker.C:
			if _, err := s.jobService.CleanupOldJobs(ctx, s.retentionDays); err != nil {
				log.Printf("[ERROR] Job cleanup failed: %v", err)
			}
		}
	}
}

func (s *Scheduler) enqueuePoll(ctx context.Context) {
	if _, err := s.jobService.EnqueueJob(ctx, models.TaskPollAllFeeds, models.JobPayload{}); err != nil {
		log.Printf("[ERROR] Failed to enqueue poll fan-out: %v", err)
	}
}
