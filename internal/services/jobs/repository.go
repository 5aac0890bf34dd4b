package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrNoJobsAvailable = errors.New("no jobs available")
)

// Repository defines the interface for job persistence
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uint) (*models.Job, error)
	GetJobByTaskAndPayload(ctx context.Context, task models.TaskName, key, value string) (*models.Job, error)
	ClaimNextJob(ctx context.Context, workerID string, queues []models.QueueName) (*models.Job, error)
	CompleteJob(ctx context.Context, jobID uint) error
	RetryJob(ctx context.Context, jobID uint, runAt time.Time, payload models.JobPayload, errorMsg string) error
	FailJobPermanently(ctx context.Context, jobID uint, errorMsg string) error
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new job repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &job, nil
}

// GetJobByTaskAndPayload finds a job by task and a specific payload value.
func (r *repository) GetJobByTaskAndPayload(ctx context.Context, task models.TaskName, key, value string) (*models.Job, error) {
	var job models.Job

	// Use JSON extract for SQLite
	query := r.db.WithContext(ctx).
		Where("task = ?", task).
		Where("json_extract(payload, ?) = ?", "$."+key, value).
		Order("created_at DESC").
		First(&job)

	if err := query.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job by task and payload: %w", err)
	}

	return &job, nil
}

// ClaimNextJob atomically claims the next runnable job in the given queues.
// Runnable means pending, or failed with retries left, with run_at due.
func (r *repository) ClaimNextJob(ctx context.Context, workerID string, queues []models.QueueName) (*models.Job, error) {
	var job models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("run_at <= ?", time.Now().UTC()).
			Where("(status = ? OR (status = ? AND retry_count < max_retries))",
				models.JobStatusPending, models.JobStatusFailed)

		if len(queues) > 0 {
			query = query.Where("queue IN ?", queues)
		}

		err := query.Order("run_at ASC, created_at ASC").
			First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoJobsAvailable
			}
			return fmt.Errorf("finding job to claim: %w", err)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"worker_id":  workerID,
			"started_at": &now,
		}
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating claimed job: %w", err)
		}

		job.Status = models.JobStatusProcessing
		job.WorkerID = workerID
		job.StartedAt = &now
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &job, nil
}

func (r *repository) CompleteJob(ctx context.Context, jobID uint) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      models.JobStatusCompleted,
			"finished_at": &now,
		})

	if res.Error != nil {
		return fmt.Errorf("completing job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// RetryJob schedules a delayed redelivery. The retry counts against the
// per-task limit; once exhausted the job is permanently failed instead. A
// non-nil payload replaces the stored one so stages can carry cursors forward.
func (r *repository) RetryJob(ctx context.Context, jobID uint, runAt time.Time, payload models.JobPayload, errorMsg string) error {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("finding job to retry: %w", err)
	}

	newRetryCount := job.RetryCount + 1
	status := models.JobStatusFailed
	if newRetryCount > job.MaxRetries {
		status = models.JobStatusPermanentlyFailed
	}

	updates := map[string]interface{}{
		"status":      status,
		"error":       errorMsg,
		"retry_count": newRetryCount,
		"run_at":      runAt.UTC(),
		"worker_id":   "",
	}
	if payload != nil {
		updates["payload"] = payload
	}
	if status == models.JobStatusPermanentlyFailed {
		now := time.Now().UTC()
		updates["finished_at"] = &now
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("retrying job: %w", err)
	}
	return nil
}

func (r *repository) FailJobPermanently(ctx context.Context, jobID uint, errorMsg string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      models.JobStatusPermanentlyFailed,
			"error":       errorMsg,
			"finished_at": &now,
			"worker_id":   "",
		})

	if res.Error != nil {
		return fmt.Errorf("failing job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *repository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Where("status IN ?", []models.JobStatus{
			models.JobStatusCompleted,
			models.JobStatusPermanentlyFailed,
		}).
		Delete(&models.Job{})

	if result.Error != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
