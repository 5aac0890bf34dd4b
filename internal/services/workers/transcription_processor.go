package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/internal/services/transcriber"
	"github.com/ateesdalejr/podlistener/pkg/config"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

const (
	missingAudioRetryCountdown = 30 * time.Second
	defaultRetryCountdown      = 120 * time.Second
	min429Countdown            = 30 * time.Second
)

// TranscriptionProcessor turns staged audio into transcript text.
type TranscriptionProcessor struct {
	episodeService episodes.Service
	jobService     jobs.Service
	client         transcriber.Transcriber
	cfg            config.TranscriptionConfig
	audioDir       string
}

// NewTranscriptionProcessor creates a transcription processor.
func NewTranscriptionProcessor(
	episodeService episodes.Service,
	jobService jobs.Service,
	client transcriber.Transcriber,
	cfg config.TranscriptionConfig,
	audioDir string,
) *TranscriptionProcessor {
	return &TranscriptionProcessor{
		episodeService: episodeService,
		jobService:     jobService,
		client:         client,
		cfg:            cfg,
		audioDir:       audioDir,
	}
}

func (p *TranscriptionProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskTranscribeEpisode
}

func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	episodeID, ok := job.GetPayloadString(keyEpisodeID)
	if !ok {
		return fmt.Errorf("transcription job %d has no episode_id", job.ID)
	}

	if _, err := p.episodeService.GetEpisode(ctx, episodeID); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return Retry(missingRowRetryCountdown, err)
		}
		return err
	}

	audioPath := AudioPath(p.audioDir, episodeID)
	if _, err := os.Stat(audioPath); err != nil {
		// Download may still be flushing on another worker
		return Retry(missingAudioRetryCountdown, fmt.Errorf("audio for episode %s not on disk yet: %w", episodeID, err))
	}

	if _, err := p.episodeService.Transition(ctx, episodeID, models.EpisodeStatusTranscribing); err != nil {
		return err
	}

	transcript, err := p.client.Transcribe(ctx, audioPath)
	if err != nil {
		// Oversized uploads, missing ffmpeg and bad provider config do not
		// heal with time; redelivering them only re-pays the failure.
		if isFatalTranscriptionError(err) {
			if markErr := p.episodeService.MarkFailed(ctx, episodeID, err); markErr != nil {
				log.Printf("[ERROR] Failed to mark episode %s failed: %v", episodeID, markErr)
			}
			return fmt.Errorf("transcribing episode %s: %w", episodeID, err)
		}
		if !job.RetriesLeft() {
			if markErr := p.episodeService.MarkFailed(ctx, episodeID, err); markErr != nil {
				log.Printf("[ERROR] Failed to mark episode %s failed: %v", episodeID, markErr)
			}
			return fmt.Errorf("transcribing episode %s: %w", episodeID, err)
		}
		countdown := p.retryCountdown(err, job.RetryCount)
		return Retry(countdown, fmt.Errorf("transcribing episode %s: %w", episodeID, err))
	}

	if err := p.episodeService.SetTranscript(ctx, episodeID, transcript); err != nil {
		return fmt.Errorf("saving transcript for episode %s: %w", episodeID, err)
	}

	payload := models.JobPayload{keyEpisodeID: episodeID, keyTranscriptionDone: true}
	if _, err := p.jobService.EnqueueUniqueJob(ctx, models.TaskDetectEpisodeKeywords, payload, keyEpisodeID); err != nil {
		return fmt.Errorf("enqueueing keyword detection for episode %s: %w", episodeID, err)
	}
	return nil
}

// isFatalTranscriptionError reports whether a transcription failure is
// permanent for this audio regardless of remaining retry budget.
func isFatalTranscriptionError(err error) bool {
	return apperrors.Is(err, apperrors.ErrCodeUploadTooLarge) ||
		apperrors.Is(err, apperrors.ErrCodeMediaTool) ||
		apperrors.Is(err, apperrors.ErrCodeConfigInvalid)
}

// retryCountdown classifies a transcription failure into a redelivery delay.
// 429 with Retry-After honors the header clamped to [30s, configured max];
// 429 without one backs off base*2^retries capped at the max; anything else
// waits the flat default.
func (p *TranscriptionProcessor) retryCountdown(err error, retriesUsed int) time.Duration {
	var statusErr *apperrors.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return defaultRetryCountdown
	}

	max := time.Duration(p.cfg.Retry429MaxSeconds) * time.Second
	if max <= 0 {
		max = 30 * time.Minute
	}

	if d, ok := apperrors.ParseRetryAfter(statusErr.RetryAfter, time.Now()); ok {
		if d < min429Countdown {
			d = min429Countdown
		}
		if d > max {
			d = max
		}
		return d
	}

	base := time.Duration(p.cfg.Retry429BaseSeconds) * time.Second
	if base <= 0 {
		base = 90 * time.Second
	}
	d := base << uint(retriesUsed)
	if d > max || d <= 0 {
		d = max
	}
	return d
}
