package workers

import (
	"context"
	"fmt"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
)

// ProcessEpisodeProcessor is the fan-out stub that starts an episode's
// pipeline chain. Download enqueues transcription, transcription enqueues
// detection, detection enqueues enrichment.
type ProcessEpisodeProcessor struct {
	jobService jobs.Service
}

// NewProcessEpisodeProcessor creates the chain starter.
func NewProcessEpisodeProcessor(jobService jobs.Service) *ProcessEpisodeProcessor {
	return &ProcessEpisodeProcessor{jobService: jobService}
}

func (p *ProcessEpisodeProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskProcessEpisode
}

func (p *ProcessEpisodeProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	episodeID, ok := job.GetPayloadString(keyEpisodeID)
	if !ok {
		return fmt.Errorf("process job %d has no episode_id", job.ID)
	}

	// Downloads get a tighter budget than other stages: a feed serving a
	// capped or dead audio URL will not get better on the third try.
	payload := models.JobPayload{keyEpisodeID: episodeID}
	if _, err := p.jobService.EnqueueUniqueJob(ctx, models.TaskDownloadEpisodeAudio, payload, keyEpisodeID,
		jobs.WithMaxRetries(downloadMaxRetries)); err != nil {
		return fmt.Errorf("enqueueing download for episode %s: %w", episodeID, err)
	}
	return nil
}
