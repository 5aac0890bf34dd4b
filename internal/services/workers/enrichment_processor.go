package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/detection"
	"github.com/ateesdalejr/podlistener/internal/services/enrichment"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/mentions"
	"github.com/ateesdalejr/podlistener/pkg/download"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// EnrichmentProcessor is the terminal pipeline stage: it runs every detected
// match through the LLM and persists mentions one at a time, resuming from
// start_index across retries.
type EnrichmentProcessor struct {
	episodeService episodes.Service
	mentionService mentions.Service
	keywordPhrases KeywordPhraseLookup
	enricher       enrichment.Enricher
	audioDir       string
}

// KeywordPhraseLookup resolves a keyword id to its phrase for prompt building.
type KeywordPhraseLookup func(ctx context.Context, keywordID string) (string, error)

// NewEnrichmentProcessor creates an enrichment processor.
func NewEnrichmentProcessor(
	episodeService episodes.Service,
	mentionService mentions.Service,
	keywordPhrases KeywordPhraseLookup,
	enricher enrichment.Enricher,
	audioDir string,
) *EnrichmentProcessor {
	return &EnrichmentProcessor{
		episodeService: episodeService,
		mentionService: mentionService,
		keywordPhrases: keywordPhrases,
		enricher:       enricher,
		audioDir:       audioDir,
	}
}

func (p *EnrichmentProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskEnrichEpisodeMentions
}

func (p *EnrichmentProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	episodeID, ok := job.GetPayloadString(keyEpisodeID)
	if !ok {
		return fmt.Errorf("enrichment job %d has no episode_id", job.ID)
	}

	// The staged audio is no longer needed whatever happens from here on.
	defer func() {
		if err := download.Cleanup(AudioPath(p.audioDir, episodeID)); err != nil {
			log.Printf("[WARN] Failed to remove audio for episode %s: %v", episodeID, err)
		}
	}()

	matches, err := decodeMatches(job)
	if err != nil {
		return fmt.Errorf("enrichment job %d: %w", job.ID, err)
	}
	startIndex, _ := job.GetPayloadInt(keyStartIndex)

	if len(matches) == 0 {
		return p.complete(ctx, episodeID)
	}

	// A fresh pass replaces whatever an earlier run left behind; a resumed
	// pass keeps the mentions persisted below start_index.
	if startIndex == 0 {
		if _, err := p.mentionService.ClearEpisodeMentions(ctx, episodeID); err != nil {
			return err
		}
	}

	for i := startIndex; i < len(matches); i++ {
		if err := p.enrichOne(ctx, episodeID, matches[i]); err != nil {
			if !job.RetriesLeft() {
				exhausted := apperrors.Wrap(err, apperrors.ErrCodeEnrichmentExhausted,
					fmt.Sprintf("enrichment retries exhausted at match %d", i))
				if markErr := p.episodeService.MarkFailed(ctx, episodeID, exhausted); markErr != nil {
					log.Printf("[ERROR] Failed to mark episode %s failed: %v", episodeID, markErr)
				}
				return fmt.Errorf("enriching match %d for episode %s: %w", i, episodeID, err)
			}
			retryPayload := models.JobPayload{
				keyEpisodeID:  episodeID,
				keyMatches:    job.Payload[keyMatches],
				keyStartIndex: i,
			}
			return RetryWithPayload(defaultRetryCountdown, retryPayload,
				fmt.Errorf("enriching match %d for episode %s: %w", i, episodeID, err))
		}
	}

	return p.complete(ctx, episodeID)
}

// enrichOne skips matches whose mention tuple already exists, then calls the
// LLM in strict mode and persists the result.
func (p *EnrichmentProcessor) enrichOne(ctx context.Context, episodeID string, match detection.Match) error {
	exists, err := p.mentionService.MentionExists(ctx, episodeID, match.KeywordID, match.MatchedText, match.Segment)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	phrase, err := p.keywordPhrases(ctx, match.KeywordID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			// Keyword deleted mid-pipeline; its matches are moot
			log.Printf("[WARN] Keyword %s gone, skipping its matches for episode %s", match.KeywordID, episodeID)
			return nil
		}
		return err
	}

	record, err := p.enricher.Enrich(ctx, phrase, match.Segment, true)
	if err != nil {
		return err
	}

	mention := &models.Mention{
		EpisodeID:         episodeID,
		KeywordID:         match.KeywordID,
		MatchedText:       match.MatchedText,
		TranscriptSegment: match.Segment,
		Sentiment:         &record.Sentiment,
		SentimentScore:    &record.SentimentScore,
		ContextSummary:    &record.ContextSummary,
		Topics:            record.Topics,
		IsBuyingSignal:    &record.IsBuyingSignal,
		IsPainPoint:       &record.IsPainPoint,
		IsRecommendation:  &record.IsRecommendation,
		RawLLMResponse:    record.Raw,
	}
	if _, err := p.mentionService.RecordMention(ctx, mention); err != nil {
		return err
	}
	return nil
}

func (p *EnrichmentProcessor) complete(ctx context.Context, episodeID string) error {
	if err := p.episodeService.MarkCompleted(ctx, episodeID); err != nil {
		return err
	}
	log.Printf("[DEBUG] Episode %s completed", episodeID)
	return nil
}
