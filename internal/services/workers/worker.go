package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
)

// JobProcessor defines the interface for processing different job tasks
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(task models.TaskName) bool
}

// RetryError asks the worker to redeliver the job after Countdown. A non-nil
// Payload replaces the stored one, which is how the enrichment stage carries
// its start_index forward.
type RetryError struct {
	Countdown time.Duration
	Payload   models.JobPayload
	Err       error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry in %s: %v", e.Countdown, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Retry builds a RetryError keeping the job's stored payload.
func Retry(countdown time.Duration, err error) *RetryError {
	return &RetryError{Countdown: countdown, Err: err}
}

// RetryWithPayload builds a RetryError that also replaces the payload.
func RetryWithPayload(countdown time.Duration, payload models.JobPayload, err error) *RetryError {
	return &RetryError{Countdown: countdown, Payload: payload, Err: err}
}

// Worker represents a background worker that processes jobs
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   []JobProcessor
	queues       []models.QueueName
	stopChan     chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
}

// NewWorker creates a new worker instance consuming the given queues. An
// empty queue list consumes everything.
func NewWorker(id string, jobService jobs.Service, queues []models.QueueName, pollInterval time.Duration) *Worker {
	return &Worker{
		id:           id,
		jobService:   jobService,
		processors:   make([]JobProcessor, 0),
		queues:       queues,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// RegisterProcessor registers a job processor
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	w.processors = append(w.processors, processor)
}

// Start starts the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log.Printf("[DEBUG] Worker %s starting (queues: %v)", w.id, w.queues)
	defer log.Printf("[DEBUG] Worker %s stopped", w.id)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx); err != nil {
				log.Printf("[ERROR] Worker %s: %v", w.id, err)
			}
		}
	}
}

// processNextJob claims and processes the next available job
func (w *Worker) processNextJob(ctx context.Context) error {
	job, err := w.jobService.ClaimNextJob(ctx, w.id, w.queues)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return nil
		}
		return fmt.Errorf("claiming job: %w", err)
	}

	log.Printf("[DEBUG] Worker %s claimed job %d (task: %s)", w.id, job.ID, job.Task)

	var processor JobProcessor
	for _, p := range w.processors {
		if p.CanProcess(job.Task) {
			processor = p
			break
		}
	}
	if processor == nil {
		failErr := w.jobService.FailJob(ctx, job.ID, fmt.Errorf("no processor for task %s", job.Task))
		if failErr != nil {
			log.Printf("[ERROR] Worker %s: failed to fail job %d: %v", w.id, job.ID, failErr)
		}
		return fmt.Errorf("no processor found for task %s", job.Task)
	}

	// The per-task token bucket gates the expensive stages globally across
	// workers of that queue.
	if err := w.jobService.WaitForTask(ctx, job.Task); err != nil {
		return w.jobService.RetryJob(ctx, job.ID, 0, nil, err)
	}

	err = processor.ProcessJob(ctx, job)
	if err != nil {
		var retryErr *RetryError
		if errors.As(err, &retryErr) {
			if retryRunErr := w.jobService.RetryJob(ctx, job.ID, retryErr.Countdown, retryErr.Payload, retryErr.Err); retryRunErr != nil {
				log.Printf("[ERROR] Worker %s: failed to retry job %d: %v", w.id, job.ID, retryRunErr)
			}
			return nil
		}
		if failErr := w.jobService.FailJob(ctx, job.ID, err); failErr != nil {
			log.Printf("[ERROR] Worker %s: failed to mark job %d as failed: %v", w.id, job.ID, failErr)
		}
		return fmt.Errorf("job %d failed: %w", job.ID, err)
	}

	if err := w.jobService.CompleteJob(ctx, job.ID); err != nil {
		return fmt.Errorf("completing job %d: %w", job.ID, err)
	}
	log.Printf("[DEBUG] Worker %s completed job %d", w.id, job.ID)
	return nil
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers    []*Worker
	jobService jobs.Service
	mu         sync.RWMutex
	started    bool
}

// NewWorkerPool creates a pool of workerCount workers all consuming every
// queue. Stage isolation comes from the per-task rate limits rather than
// dedicated workers, matching the small single-node deployments this targets.
func NewWorkerPool(jobService jobs.Service, workerCount int, pollInterval time.Duration) *WorkerPool {
	pool := &WorkerPool{
		jobService: jobService,
		workers:    make([]*Worker, workerCount),
	}

	for i := 0; i < workerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		pool.workers[i] = NewWorker(workerID, jobService, nil, pollInterval)
	}

	return pool
}

// RegisterProcessor registers a processor with all workers
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, worker := range p.workers {
		worker.RegisterProcessor(processor)
	}
}

// Start starts all workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	log.Printf("[DEBUG] Starting worker pool with %d workers", len(p.workers))
	for _, worker := range p.workers {
		worker.Start(ctx)
	}
	p.started = true
	return nil
}

// Stop stops all workers gracefully
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	log.Printf("[DEBUG] Stopping worker pool")
	for _, worker := range p.workers {
		worker.Stop()
	}
	p.started = false
}
