package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/pkg/download"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

const (
	downloadRetryCountdown   = 120 * time.Second
	missingRowRetryCountdown = 10 * time.Second

	// Cap violations and dead URLs rarely recover; two retries is plenty.
	downloadMaxRetries = 2
)

// AudioDownloader is the streaming download dependency.
type AudioDownloader interface {
	DownloadToFile(ctx context.Context, url, destPath string) (*download.Result, error)
}

// DownloadProcessor stages episode audio on disk.
type DownloadProcessor struct {
	episodeService episodes.Service
	jobService     jobs.Service
	downloader     AudioDownloader
	audioDir       string
}

// NewDownloadProcessor creates a download processor.
func NewDownloadProcessor(
	episodeService episodes.Service,
	jobService jobs.Service,
	downloader AudioDownloader,
	audioDir string,
) *DownloadProcessor {
	return &DownloadProcessor{
		episodeService: episodeService,
		jobService:     jobService,
		downloader:     downloader,
		audioDir:       audioDir,
	}
}

func (p *DownloadProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskDownloadEpisodeAudio
}

func (p *DownloadProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	episodeID, ok := job.GetPayloadString(keyEpisodeID)
	if !ok {
		return fmt.Errorf("download job %d has no episode_id", job.ID)
	}

	episode, err := p.episodeService.GetEpisode(ctx, episodeID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			// The poll transaction may not be visible yet
			return Retry(missingRowRetryCountdown, err)
		}
		return err
	}
	if episode.AudioURL == nil || *episode.AudioURL == "" {
		markErr := p.episodeService.MarkFailed(ctx, episodeID, fmt.Errorf("episode has no audio URL"))
		if markErr != nil {
			log.Printf("[ERROR] Failed to mark episode %s failed: %v", episodeID, markErr)
		}
		return fmt.Errorf("episode %s has no audio URL", episodeID)
	}

	if _, err := p.episodeService.Transition(ctx, episodeID, models.EpisodeStatusDownloading); err != nil {
		return err
	}

	destPath := AudioPath(p.audioDir, episodeID)
	if _, err := p.downloader.DownloadToFile(ctx, *episode.AudioURL, destPath); err != nil {
		// Cap violations look fatal but transient server hiccups produce them
		// too, so they still get the bounded retry.
		if job.RetriesLeft() {
			return Retry(downloadRetryCountdown, fmt.Errorf("downloading %s: %w", *episode.AudioURL, err))
		}
		if markErr := p.episodeService.MarkFailed(ctx, episodeID, err); markErr != nil {
			log.Printf("[ERROR] Failed to mark episode %s failed: %v", episodeID, markErr)
		}
		return fmt.Errorf("downloading %s: %w", *episode.AudioURL, err)
	}

	payload := models.JobPayload{keyEpisodeID: episodeID}
	if _, err := p.jobService.EnqueueUniqueJob(ctx, models.TaskTranscribeEpisode, payload, keyEpisodeID); err != nil {
		return fmt.Errorf("enqueueing transcription for episode %s: %w", episodeID, err)
	}
	return nil
}
