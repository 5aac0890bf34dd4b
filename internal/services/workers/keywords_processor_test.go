package workers

import (
	"context"
	"testing"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeywordsProcessor(e *env) *KeywordsProcessor {
	return NewKeywordsProcessor(e.episodes, e.keywords, e.jobs, detection.New())
}

func detectJob(episodeID string, done bool) *models.Job {
	return testJob(models.TaskDetectEpisodeKeywords, models.JobPayload{
		keyEpisodeID:         episodeID,
		keyTranscriptionDone: done,
	}, 0, 3)
}

func TestKeywordsProcessor_HandsMatchesToEnrichment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	feed := e.createFeed(t, "https://example.com/feed.xml")
	transcript := "Today we talk about Datadog and how datadog changed our on-call."
	episode := e.createEpisode(t, feed.ID, func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusTranscribing
		ep.TranscriptText = &transcript
	})
	_, err := e.keywords.CreateKeyword(ctx, "datadog", models.MatchTypeContains)
	require.NoError(t, err)

	p := newKeywordsProcessor(e)
	require.NoError(t, p.ProcessJob(ctx, detectJob(episode.ID, true)))

	assert.Equal(t, models.EpisodeStatusAnalyzing, e.episodeStatus(t, episode.ID))

	enrichJobs := e.jobsForTask(t, models.TaskEnrichEpisodeMentions)
	require.Len(t, enrichJobs, 1)
	matches, err := decodeMatches(&enrichJobs[0])
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Datadog", matches[0].MatchedText)
	assert.Equal(t, "datadog", matches[1].MatchedText)
	idx, ok := enrichJobs[0].GetPayloadInt(keyStartIndex)
	require.True(t, ok)
	assert.Zero(t, idx)
}

func TestKeywordsProcessor_NoKeywordsCompletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	feed := e.createFeed(t, "https://example.com/feed.xml")
	transcript := "Nothing to look for in here."
	episode := e.createEpisode(t, feed.ID, func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusTranscribing
		ep.TranscriptText = &transcript
	})

	p := newKeywordsProcessor(e)
	require.NoError(t, p.ProcessJob(ctx, detectJob(episode.ID, true)))

	assert.Equal(t, models.EpisodeStatusCompleted, e.episodeStatus(t, episode.ID))
	assert.Empty(t, e.jobsForTask(t, models.TaskEnrichEpisodeMentions))
}

func TestKeywordsProcessor_EmptyTranscriptIsValid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	feed := e.createFeed(t, "https://example.com/feed.xml")
	empty := ""
	episode := e.createEpisode(t, feed.ID, func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusTranscribing
		ep.TranscriptText = &empty
	})
	_, err := e.keywords.CreateKeyword(ctx, "datadog", models.MatchTypeContains)
	require.NoError(t, err)

	p := newKeywordsProcessor(e)
	require.NoError(t, p.ProcessJob(ctx, detectJob(episode.ID, true)))

	// Zero matches still flow through enrichment, which completes the episode
	enrichJobs := e.jobsForTask(t, models.TaskEnrichEpisodeMentions)
	require.Len(t, enrichJobs, 1)
	matches, err := decodeMatches(&enrichJobs[0])
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKeywordsProcessor_NullTranscriptRetries(t *testing.T) {
	e := newEnv(t)

	feed := e.createFeed(t, "https://example.com/feed.xml")
	episode := e.createEpisode(t, feed.ID, func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusTranscribing
	})

	p := newKeywordsProcessor(e)
	err := p.ProcessJob(context.Background(), detectJob(episode.ID, true))

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, missingTranscriptRetryCountdown, retryErr.Countdown)
}

func TestKeywordsProcessor_EarlyChainRetries(t *testing.T) {
	e := newEnv(t)

	feed := e.createFeed(t, "https://example.com/feed.xml")
	episode := e.createEpisode(t, feed.ID, nil)

	p := newKeywordsProcessor(e)
	err := p.ProcessJob(context.Background(), detectJob(episode.ID, false))

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, missingTranscriptRetryCountdown, retryErr.Countdown)
}
