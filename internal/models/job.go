package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// JobStatus represents the status of a job in the queue
type JobStatus string

const (
	JobStatusPending           JobStatus = "pending"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusFailed            JobStatus = "failed"
	JobStatusPermanentlyFailed JobStatus = "permanently_failed"
)

// TaskName identifies the handler for a job.
type TaskName string

const (
	TaskPollAllFeeds          TaskName = "poll_all_feeds"
	TaskPollSingleFeed        TaskName = "poll_single_feed"
	TaskProcessEpisode        TaskName = "process_episode"
	TaskDownloadEpisodeAudio  TaskName = "download_episode_audio"
	TaskTranscribeEpisode     TaskName = "transcribe_episode_audio"
	TaskDetectEpisodeKeywords TaskName = "detect_episode_keywords"
	TaskEnrichEpisodeMentions TaskName = "enrich_episode_mentions"
)

// QueueName routes jobs to worker subsets so the slow, rate-limited stages do
// not starve the fast ones.
type QueueName string

const (
	QueuePoll          QueueName = "poll"
	QueueProcess       QueueName = "process"
	QueueDownload      QueueName = "download"
	QueueTranscription QueueName = "transcription"
	QueueKeywords      QueueName = "keywords"
	QueueLLM           QueueName = "llm"
)

// QueueForTask routes a task to its named queue.
func QueueForTask(task TaskName) QueueName {
	switch task {
	case TaskPollAllFeeds, TaskPollSingleFeed:
		return QueuePoll
	case TaskProcessEpisode:
		return QueueProcess
	case TaskDownloadEpisodeAudio:
		return QueueDownload
	case TaskTranscribeEpisode:
		return QueueTranscription
	case TaskDetectEpisodeKeywords:
		return QueueKeywords
	case TaskEnrichEpisodeMentions:
		return QueueLLM
	}
	return QueueProcess
}

// Job represents a background job in the durable queue.
type Job struct {
	gorm.Model
	Task    TaskName   `json:"task" gorm:"not null;index:idx_jobs_task_status"`
	Queue   QueueName  `json:"queue" gorm:"not null;index:idx_jobs_queue_status"`
	Status  JobStatus  `json:"status" gorm:"default:'pending';index:idx_jobs_queue_status;index:idx_jobs_task_status"`
	Payload JobPayload `json:"payload" gorm:"type:json"`
	// RunAt is the earliest time the job may be claimed; delayed retries push
	// it into the future.
	RunAt      time.Time  `json:"run_at" gorm:"index"`
	MaxRetries int        `json:"max_retries" gorm:"default:3"`
	RetryCount int        `json:"retry_count" gorm:"default:0"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Error      string     `json:"error,omitempty"`
	WorkerID   string     `json:"worker_id,omitempty"`
}

// JobPayload represents the input data for a job.
type JobPayload map[string]interface{}

// Value implements driver.Valuer for JobPayload.
func (p JobPayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JobPayload.
func (p *JobPayload) Scan(value interface{}) error {
	if value == nil {
		*p = make(JobPayload)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// IsRetryable returns true if the job can be retried.
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusPermanentlyFailed ||
		(j.Status == JobStatusFailed && !j.IsRetryable())
}

// RetriesLeft reports whether another delivery attempt remains after this one.
func (j *Job) RetriesLeft() bool {
	return j.RetryCount < j.MaxRetries
}

// GetPayloadString safely retrieves a string value from the payload.
func (j *Job) GetPayloadString(key string) (string, bool) {
	if j.Payload == nil {
		return "", false
	}
	val, ok := j.Payload[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetPayloadInt safely retrieves an int value from the payload. JSON numbers
// decode as float64, so both are handled.
func (j *Job) GetPayloadInt(key string) (int, bool) {
	if j.Payload == nil {
		return 0, false
	}
	val, ok := j.Payload[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetPayloadBool safely retrieves a bool value from the payload.
func (j *Job) GetPayloadBool(key string) (bool, bool) {
	if j.Payload == nil {
		return false, false
	}
	val, ok := j.Payload[key]
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}
