package jobs

import (
	"context"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// Service defines the business logic interface for queue operations.
// Delivery is at-least-once: handlers must be idempotent.
type Service interface {
	// Enqueue operations
	EnqueueJob(ctx context.Context, task models.TaskName, payload models.JobPayload, opts ...JobOption) (*models.Job, error)
	EnqueueUniqueJob(ctx context.Context, task models.TaskName, payload models.JobPayload, uniqueKey string, opts ...JobOption) (*models.Job, error)

	// Status and retrieval
	GetJob(ctx context.Context, jobID uint) (*models.Job, error)

	// Worker operations (used by the worker pool)
	ClaimNextJob(ctx context.Context, workerID string, queues []models.QueueName) (*models.Job, error)
	CompleteJob(ctx context.Context, jobID uint) error
	FailJob(ctx context.Context, jobID uint, err error) error
	RetryJob(ctx context.Context, jobID uint, countdown time.Duration, payload models.JobPayload, cause error) error

	// Per-task rate limits (token bucket at task granularity)
	SetTaskRateLimit(task models.TaskName, perMinute int)
	WaitForTask(ctx context.Context, task models.TaskName) error

	// Maintenance
	CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error)
}

// JobOption is a functional option for configuring jobs
type JobOption func(*jobConfig)

// jobConfig holds configuration for a job
type jobConfig struct {
	MaxRetries int
	Countdown  time.Duration
}

// WithMaxRetries sets the maximum number of retries for a job
func WithMaxRetries(retries int) JobOption {
	return func(cfg *jobConfig) {
		cfg.MaxRetries = retries
	}
}

// WithCountdown delays the first delivery of the job.
func WithCountdown(d time.Duration) JobOption {
	return func(cfg *jobConfig) {
		cfg.Countdown = d
	}
}
