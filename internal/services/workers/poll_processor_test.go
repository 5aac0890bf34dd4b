package workers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/feedparse"
	"github.com/ateesdalejr/podlistener/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Go Time</title>
    <image><url>https://example.com/cover.jpg</url><title>Go Time</title><link>https://example.com</link></image>
    <item>
      <title>Episode 3</title>
      <guid>guid-3</guid>
      <pubDate>Wed, 03 Jan 2024 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/3.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>Episode 2</title>
      <guid>guid-2</guid>
      <pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/2.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>Episode 1</title>
      <guid>guid-1</guid>
      <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/1.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>Show notes only</title>
      <guid>guid-no-audio</guid>
    </item>
  </channel>
</rss>`

func rssServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	t.Cleanup(server.Close)
	return server
}

func newPollProcessor(e *env, cfg config.PollerConfig) *PollProcessor {
	return NewPollProcessor(e.feeds, e.episodes, e.jobs, feedparse.New(""), cfg)
}

func pollJob(feedID string, initialImport bool) *models.Job {
	payload := models.JobPayload{keyFeedID: feedID}
	if initialImport {
		payload[keyInitialImport] = true
	}
	return testJob(models.TaskPollSingleFeed, payload, 0, 3)
}

func TestPollProcessor_SingleFeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	server := rssServer(t)
	feed := e.createFeed(t, server.URL)

	cfg := config.PollerConfig{MaxEpisodesPerFeed: 2, InitialImportLimit: 10}
	p := newPollProcessor(e, cfg)

	require.NoError(t, p.ProcessJob(ctx, pollJob(feed.ID, false)))

	// The audio-less entry is skipped
	var episodes []models.Episode
	require.NoError(t, e.db.Where("feed_id = ?", feed.ID).Find(&episodes).Error)
	assert.Len(t, episodes, 3)

	// Only the newest MaxEpisodesPerFeed move past pending
	var queued []models.Episode
	require.NoError(t, e.db.Where("feed_id = ? AND status = ?", feed.ID, models.EpisodeStatusQueued).
		Find(&queued).Error)
	require.Len(t, queued, 2)
	titles := []string{*queued[0].Title, *queued[1].Title}
	assert.ElementsMatch(t, []string{"Episode 3", "Episode 2"}, titles)

	assert.Len(t, e.jobsForTask(t, models.TaskProcessEpisode), 2)

	// Channel metadata landed on the subscription
	got, err := e.feeds.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Go Time", *got.Title)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://example.com/cover.jpg", *got.ImageURL)
	assert.NotNil(t, got.LastPolledAt)
}

func TestPollProcessor_SecondPollIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	server := rssServer(t)
	feed := e.createFeed(t, server.URL)

	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 5, InitialImportLimit: 10})

	require.NoError(t, p.ProcessJob(ctx, pollJob(feed.ID, false)))
	require.NoError(t, p.ProcessJob(ctx, pollJob(feed.ID, false)))

	var count int64
	require.NoError(t, e.db.Model(&models.Episode{}).Where("feed_id = ?", feed.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count, "re-polling the same document must not duplicate episodes")

	// The first poll queued everything, so the second finds nothing pending
	assert.Len(t, e.jobsForTask(t, models.TaskProcessEpisode), 3)
}

func TestPollProcessor_MetadataNeverOverwritten(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	server := rssServer(t)
	feed := e.createFeed(t, server.URL)

	custom := "My Renamed Feed"
	require.NoError(t, e.db.Model(&models.Feed{}).Where("id = ?", feed.ID).
		Update("title", custom).Error)

	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 5, InitialImportLimit: 10})
	require.NoError(t, p.ProcessJob(ctx, pollJob(feed.ID, false)))

	got, err := e.feeds.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, custom, *got.Title)
	// The still-null image is filled in
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://example.com/cover.jpg", *got.ImageURL)
}

func TestPollProcessor_InitialImportUsesItsOwnLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	server := rssServer(t)
	feed := e.createFeed(t, server.URL)

	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 1, InitialImportLimit: 3})
	require.NoError(t, p.ProcessJob(ctx, pollJob(feed.ID, true)))

	assert.Len(t, e.jobsForTask(t, models.TaskProcessEpisode), 3)
}

func TestPollProcessor_ParseErrorRetries(t *testing.T) {
	e := newEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed")
	}))
	t.Cleanup(server.Close)
	feed := e.createFeed(t, server.URL)

	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 5})
	err := p.ProcessJob(context.Background(), pollJob(feed.ID, false))

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, feedParseRetryCountdown, retryErr.Countdown)
}

func TestPollProcessor_MissingFeedIsDropped(t *testing.T) {
	e := newEnv(t)
	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 5})

	assert.NoError(t, p.ProcessJob(context.Background(), pollJob("no-such-feed", false)))
}

func TestPollProcessor_FanOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createFeed(t, "https://example.com/a.xml")
	e.createFeed(t, "https://example.com/b.xml")

	p := newPollProcessor(e, config.PollerConfig{MaxEpisodesPerFeed: 5})
	job := testJob(models.TaskPollAllFeeds, models.JobPayload{}, 0, 3)
	require.NoError(t, p.ProcessJob(ctx, job))

	assert.Len(t, e.jobsForTask(t, models.TaskPollSingleFeed), 2)

	// The fan-out dedupes against polls still in flight
	require.NoError(t, p.ProcessJob(ctx, job))
	assert.Len(t, e.jobsForTask(t, models.TaskPollSingleFeed), 2)
}
