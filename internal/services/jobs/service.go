package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"golang.org/x/time/rate"
)

const defaultMaxRetries = 3

type service struct {
	repo Repository

	mu       sync.Mutex
	limiters map[models.TaskName]*rate.Limiter
}

// NewService creates a new job queue service
func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		limiters: make(map[models.TaskName]*rate.Limiter),
	}
}

func (s *service) EnqueueJob(ctx context.Context, task models.TaskName, payload models.JobPayload, opts ...JobOption) (*models.Job, error) {
	cfg := jobConfig{MaxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(&cfg)
	}

	job := &models.Job{
		Task:       task,
		Queue:      models.QueueForTask(task),
		Status:     models.JobStatusPending,
		Payload:    payload,
		RunAt:      time.Now().UTC().Add(cfg.Countdown),
		MaxRetries: cfg.MaxRetries,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}

	log.Printf("[DEBUG] Enqueued job %d task=%s queue=%s run_at=%s", job.ID, job.Task, job.Queue, job.RunAt.Format(time.RFC3339))
	return job, nil
}

// EnqueueUniqueJob enqueues a job unless a live one already exists for the
// same task and payload value under uniqueKey. Used to avoid stacking
// duplicate pipeline stages for the same episode.
func (s *service) EnqueueUniqueJob(ctx context.Context, task models.TaskName, payload models.JobPayload, uniqueKey string, opts ...JobOption) (*models.Job, error) {
	value, ok := payload[uniqueKey].(string)
	if !ok {
		return nil, fmt.Errorf("unique key %q missing from payload", uniqueKey)
	}

	existing, err := s.repo.GetJobByTaskAndPayload(ctx, task, uniqueKey, value)
	if err == nil && !existing.IsTerminal() {
		log.Printf("[DEBUG] Job %d already live for task=%s %s=%s, not enqueueing", existing.ID, task, uniqueKey, value)
		return existing, nil
	}
	if err != nil && err != ErrJobNotFound {
		return nil, fmt.Errorf("checking for duplicate job: %w", err)
	}

	return s.EnqueueJob(ctx, task, payload, opts...)
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

func (s *service) ClaimNextJob(ctx context.Context, workerID string, queues []models.QueueName) (*models.Job, error) {
	return s.repo.ClaimNextJob(ctx, workerID, queues)
}

func (s *service) CompleteJob(ctx context.Context, jobID uint) error {
	return s.repo.CompleteJob(ctx, jobID)
}

// FailJob marks a failed delivery. With retries left the job stays eligible
// for immediate reclaim; otherwise it is permanently failed.
func (s *service) FailJob(ctx context.Context, jobID uint, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.repo.RetryJob(ctx, jobID, time.Now().UTC(), nil, msg)
}

// RetryJob schedules redelivery after countdown. A non-nil payload replaces
// the stored one so partially completed stages resume where they left off.
func (s *service) RetryJob(ctx context.Context, jobID uint, countdown time.Duration, payload models.JobPayload, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	runAt := time.Now().UTC().Add(countdown)
	log.Printf("[DEBUG] Retrying job %d in %s", jobID, countdown)
	return s.repo.RetryJob(ctx, jobID, runAt, payload, msg)
}

// SetTaskRateLimit installs a token bucket for the task at perMinute events
// per minute with burst 1. Zero or negative removes the limit.
func (s *service) SetTaskRateLimit(task models.TaskName, perMinute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perMinute <= 0 {
		delete(s.limiters, task)
		return
	}
	s.limiters[task] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// WaitForTask blocks until the task's limiter grants a token, or the context
// dies. Tasks with no limiter pass through immediately.
func (s *service) WaitForTask(ctx context.Context, task models.TaskName) error {
	s.mu.Lock()
	limiter := s.limiters[task]
	s.mu.Unlock()
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (s *service) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOldJobs(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[DEBUG] Cleaned up %d finished jobs older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
