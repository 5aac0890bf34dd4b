package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/detection"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/internal/services/keywords"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

const missingTranscriptRetryCountdown = 30 * time.Second

// KeywordsProcessor runs the detector over a finished transcript and hands
// the matches to the enrichment stage.
type KeywordsProcessor struct {
	episodeService episodes.Service
	keywordService keywords.Service
	jobService     jobs.Service
	detector       *detection.Detector
}

// NewKeywordsProcessor creates a keyword detection processor.
func NewKeywordsProcessor(
	episodeService episodes.Service,
	keywordService keywords.Service,
	jobService jobs.Service,
	detector *detection.Detector,
) *KeywordsProcessor {
	return &KeywordsProcessor{
		episodeService: episodeService,
		keywordService: keywordService,
		jobService:     jobService,
		detector:       detector,
	}
}

func (p *KeywordsProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskDetectEpisodeKeywords
}

func (p *KeywordsProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	episodeID, ok := job.GetPayloadString(keyEpisodeID)
	if !ok {
		return fmt.Errorf("keyword job %d has no episode_id", job.ID)
	}

	// The handoff form carries transcription_done; the manual retry path
	// enqueues a bare episode_id. A false flag means the chain fired early.
	if done, present := job.GetPayloadBool(keyTranscriptionDone); present && !done {
		return Retry(missingTranscriptRetryCountdown, fmt.Errorf("episode %s transcription not done", episodeID))
	}

	episode, err := p.episodeService.GetEpisode(ctx, episodeID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return Retry(missingRowRetryCountdown, err)
		}
		return err
	}

	// An empty transcript is valid; only null means transcription has not
	// landed yet.
	if episode.TranscriptText == nil {
		return Retry(missingTranscriptRetryCountdown, fmt.Errorf("episode %s has no transcript yet", episodeID))
	}

	if _, err := p.episodeService.Transition(ctx, episodeID, models.EpisodeStatusAnalyzing); err != nil {
		return err
	}

	allKeywords, err := p.keywordService.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("listing keywords: %w", err)
	}
	if len(allKeywords) == 0 {
		log.Printf("[DEBUG] No keywords defined, completing episode %s", episodeID)
		return p.episodeService.MarkCompleted(ctx, episodeID)
	}

	matches := p.detector.Detect(*episode.TranscriptText, allKeywords)
	log.Printf("[DEBUG] Episode %s: %d matches across %d keywords", episodeID, len(matches), len(allKeywords))

	payload := models.JobPayload{
		keyEpisodeID:  episodeID,
		keyMatches:    encodeMatches(matches),
		keyStartIndex: 0,
	}
	if _, err := p.jobService.EnqueueUniqueJob(ctx, models.TaskEnrichEpisodeMentions, payload, keyEpisodeID); err != nil {
		return fmt.Errorf("enqueueing enrichment for episode %s: %w", episodeID, err)
	}
	return nil
}
