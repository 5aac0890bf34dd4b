package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/feedparse"
	"github.com/ateesdalejr/podlistener/internal/services/feeds"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/pkg/config"
)

const feedParseRetryCountdown = 60 * time.Second

// PollProcessor handles the poll_all_feeds fan-out and per-feed polling.
type PollProcessor struct {
	feedService    feeds.Service
	episodeService episodes.Service
	jobService     jobs.Service
	parser         *feedparse.Parser
	pollerCfg      config.PollerConfig
}

// NewPollProcessor creates a poll processor.
func NewPollProcessor(
	feedService feeds.Service,
	episodeService episodes.Service,
	jobService jobs.Service,
	parser *feedparse.Parser,
	pollerCfg config.PollerConfig,
) *PollProcessor {
	return &PollProcessor{
		feedService:    feedService,
		episodeService: episodeService,
		jobService:     jobService,
		parser:         parser,
		pollerCfg:      pollerCfg,
	}
}

func (p *PollProcessor) CanProcess(task models.TaskName) bool {
	return task == models.TaskPollAllFeeds || task == models.TaskPollSingleFeed
}

func (p *PollProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	switch job.Task {
	case models.TaskPollAllFeeds:
		return p.pollAllFeeds(ctx)
	case models.TaskPollSingleFeed:
		return p.pollSingleFeed(ctx, job)
	}
	return fmt.Errorf("unsupported task %s", job.Task)
}

// pollAllFeeds fans one poll_single_feed job out per subscribed feed. The
// unique enqueue keeps a slow poll from stacking up behind the scheduler.
func (p *PollProcessor) pollAllFeeds(ctx context.Context) error {
	allFeeds, err := p.feedService.ListFeeds(ctx)
	if err != nil {
		return fmt.Errorf("listing feeds: %w", err)
	}

	for _, feed := range allFeeds {
		payload := models.JobPayload{keyFeedID: feed.ID}
		if _, err := p.jobService.EnqueueUniqueJob(ctx, models.TaskPollSingleFeed, payload, keyFeedID); err != nil {
			return fmt.Errorf("enqueueing poll for feed %s: %w", feed.ID, err)
		}
	}
	log.Printf("[DEBUG] Fanned out polls for %d feeds", len(allFeeds))
	return nil
}

func (p *PollProcessor) pollSingleFeed(ctx context.Context, job *models.Job) error {
	feedID, ok := job.GetPayloadString(keyFeedID)
	if !ok {
		return fmt.Errorf("poll job %d has no feed_id", job.ID)
	}
	initialImport, _ := job.GetPayloadBool(keyInitialImport)

	feed, err := p.feedService.GetFeed(ctx, feedID)
	if err != nil {
		// Feed deleted between enqueue and delivery
		log.Printf("[WARN] Skipping poll for missing feed %s", feedID)
		return nil
	}

	parsed, err := p.parser.FetchAndParse(ctx, feed.RSSURL)
	if err != nil {
		return Retry(feedParseRetryCountdown, fmt.Errorf("parsing feed %s: %w", feed.RSSURL, err))
	}

	if err := p.feedService.UpdateMetadata(ctx, feed.ID, strPtr(parsed.Title), strPtr(parsed.ImageURL)); err != nil {
		return fmt.Errorf("updating feed metadata: %w", err)
	}

	inserted := 0
	for _, item := range parsed.Items {
		// Entries without a stable identity or playable audio are skipped
		if item.GUID == "" || item.AudioURL == "" {
			continue
		}
		episode := &models.Episode{
			FeedID:      feed.ID,
			GUID:        item.GUID,
			Title:       strPtr(item.Title),
			AudioURL:    strPtr(item.AudioURL),
			PublishedAt: item.PublishedAt,
		}
		_, created, err := p.episodeService.UpsertByGUID(ctx, episode)
		if err != nil {
			return fmt.Errorf("upserting episode %s: %w", item.GUID, err)
		}
		if created {
			inserted++
		}
	}

	if err := p.feedService.MarkPolled(ctx, feed.ID); err != nil {
		return fmt.Errorf("marking feed polled: %w", err)
	}

	// Flip the newest pending episodes to queued before enqueueing, so a
	// concurrent poll finds nothing left to claim.
	limit := p.pollerCfg.MaxEpisodesPerFeed
	if initialImport {
		limit = p.pollerCfg.InitialImportLimit
	}
	queued, err := p.episodeService.QueueRecentPending(ctx, feed.ID, limit)
	if err != nil {
		return fmt.Errorf("queueing episodes: %w", err)
	}

	for _, episode := range queued {
		payload := models.JobPayload{keyEpisodeID: episode.ID}
		if _, err := p.jobService.EnqueueJob(ctx, models.TaskProcessEpisode, payload); err != nil {
			return fmt.Errorf("enqueueing process for episode %s: %w", episode.ID, err)
		}
	}

	log.Printf("[DEBUG] Polled feed %s: %d new episodes, %d queued", feed.ID, inserted, len(queued))
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
