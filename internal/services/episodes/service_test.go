package episodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) (Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(&models.Feed{}, &models.Episode{}))

	return NewService(NewRepository(db)), db
}

func createTestFeed(t *testing.T, db *gorm.DB) *models.Feed {
	feed := &models.Feed{RSSURL: "https://example.com/feed.xml"}
	require.NoError(t, db.Create(feed).Error)
	return feed
}

func createTestEpisode(t *testing.T, svc Service, feedID, guid string, publishedAt *time.Time) *models.Episode {
	episode, created, err := svc.UpsertByGUID(context.Background(), &models.Episode{
		FeedID:      feedID,
		GUID:        guid,
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)
	require.True(t, created)
	return episode
}

func TestService_UpsertByGUID(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	first, created, err := svc.UpsertByGUID(ctx, &models.Episode{FeedID: feed.ID, GUID: "guid-1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.EpisodeStatusPending, first.Status)

	// Same GUID again returns the existing episode untouched
	title := "new title"
	again, created, err := svc.UpsertByGUID(ctx, &models.Episode{FeedID: feed.ID, GUID: "guid-1", Title: &title})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Nil(t, again.Title)
}

func TestService_Transition(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	episode := createTestEpisode(t, svc, feed.ID, "guid-1", nil)

	// Walk the happy path
	path := []models.EpisodeStatus{
		models.EpisodeStatusQueued,
		models.EpisodeStatusDownloading,
		models.EpisodeStatusTranscribing,
		models.EpisodeStatusAnalyzing,
		models.EpisodeStatusCompleted,
	}
	for _, next := range path {
		got, err := svc.Transition(ctx, episode.ID, next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, got.Status)
	}

	// Terminal state rejects further movement
	_, err := svc.Transition(ctx, episode.ID, models.EpisodeStatusDownloading)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeConflict))
}

func TestService_Transition_RejectsSkippedStages(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	episode := createTestEpisode(t, svc, feed.ID, "guid-1", nil)

	_, err := svc.Transition(ctx, episode.ID, models.EpisodeStatusTranscribing)
	require.Error(t, err, "pending cannot jump to transcribing")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeConflict))
}

func TestService_MarkFailed(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	episode := createTestEpisode(t, svc, feed.ID, "guid-1", nil)
	_, err := svc.Transition(ctx, episode.ID, models.EpisodeStatusQueued)
	require.NoError(t, err)

	longMsg := strings.Repeat("x", 2*models.MaxErrorMessageLen)
	require.NoError(t, svc.MarkFailed(ctx, episode.ID, errors.New(longMsg)))

	got, err := svc.GetEpisode(ctx, episode.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EpisodeStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Len(t, *got.ErrorMessage, models.MaxErrorMessageLen, "error message is truncated")
}

func TestService_QueueRecentPending(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	createTestEpisode(t, svc, feed.ID, "old", &old)
	undated := createTestEpisode(t, svc, feed.ID, "undated", nil)
	midEp := createTestEpisode(t, svc, feed.ID, "mid", &mid)
	recentEp := createTestEpisode(t, svc, feed.ID, "recent", &recent)

	queued, err := svc.QueueRecentPending(ctx, feed.ID, 2)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, recentEp.ID, queued[0].ID, "newest published first")
	assert.Equal(t, midEp.ID, queued[1].ID)
	for _, ep := range queued {
		assert.Equal(t, models.EpisodeStatusQueued, ep.Status)
	}

	// Undated episodes sort after all dated ones
	queued, err = svc.QueueRecentPending(ctx, feed.ID, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, undated.ID, queued[1].ID)
}

func TestService_QueueRecentPending_WindowDoesNotDrainBacklog(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		createTestEpisode(t, svc, feed.ID, fmt.Sprintf("guid-%02d", i), &at)
	}

	queued, err := svc.QueueRecentPending(ctx, feed.ID, 10)
	require.NoError(t, err)
	require.Len(t, queued, 10)

	// The window covers the feed's newest episodes regardless of status, so
	// a second poll finds nothing pending inside it and must not promote
	// older episodes in its place.
	queued, err = svc.QueueRecentPending(ctx, feed.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	var pending int64
	require.NoError(t, db.Model(&models.Episode{}).
		Where("feed_id = ? AND status = ?", feed.ID, models.EpisodeStatusPending).
		Count(&pending).Error)
	assert.EqualValues(t, 15, pending, "backlog beyond the window stays pending")
}

func TestService_QueueRecentPending_OnlyFlipsPendingRows(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	newest := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	done := createTestEpisode(t, svc, feed.ID, "done", &newest)
	fresh := createTestEpisode(t, svc, feed.ID, "fresh", &older)

	require.NoError(t, db.Model(&models.Episode{}).
		Where("id = ?", done.ID).
		Update("status", models.EpisodeStatusCompleted).Error)

	queued, err := svc.QueueRecentPending(ctx, feed.ID, 2)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, fresh.ID, queued[0].ID)

	got, err := svc.GetEpisode(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EpisodeStatusCompleted, got.Status, "non-pending rows in the window are untouched")
}

func TestService_ResetForReprocess(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	episode := createTestEpisode(t, svc, feed.ID, "guid-1", nil)

	t.Run("rejects non-failed episode", func(t *testing.T) {
		_, err := svc.ResetForReprocess(ctx, episode.ID)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeConflict))
	})

	t.Run("clears transcript and error", func(t *testing.T) {
		require.NoError(t, svc.SetTranscript(ctx, episode.ID, "some transcript"))
		require.NoError(t, svc.MarkFailed(ctx, episode.ID, errors.New("boom")))

		got, err := svc.ResetForReprocess(ctx, episode.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EpisodeStatusPending, got.Status)
		assert.Nil(t, got.TranscriptText)
		assert.Nil(t, got.ErrorMessage)
	})
}

func TestService_ResetForEnrichmentRetry(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	ctx := context.Background()

	t.Run("requires transcript", func(t *testing.T) {
		episode := createTestEpisode(t, svc, feed.ID, "no-transcript", nil)
		require.NoError(t, svc.MarkFailed(ctx, episode.ID, errors.New("download failed")))

		_, err := svc.ResetForEnrichmentRetry(ctx, episode.ID)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeConflict))
	})

	t.Run("empty transcript is a valid transcript", func(t *testing.T) {
		episode := createTestEpisode(t, svc, feed.ID, "empty-transcript", nil)
		require.NoError(t, svc.SetTranscript(ctx, episode.ID, ""))
		require.NoError(t, svc.MarkFailed(ctx, episode.ID, errors.New("llm failed")))

		got, err := svc.ResetForEnrichmentRetry(ctx, episode.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EpisodeStatusAnalyzing, got.Status)
		assert.Nil(t, got.ErrorMessage)
		require.NotNil(t, got.TranscriptText)
	})
}

func TestService_ListEpisodes_Filters(t *testing.T) {
	svc, db := setupTestService(t)
	feed := createTestFeed(t, db)
	other := &models.Feed{RSSURL: "https://example.com/other.xml"}
	require.NoError(t, db.Create(other).Error)
	ctx := context.Background()

	createTestEpisode(t, svc, feed.ID, "a", nil)
	b := createTestEpisode(t, svc, feed.ID, "b", nil)
	createTestEpisode(t, svc, other.ID, "c", nil)

	_, err := svc.Transition(ctx, b.ID, models.EpisodeStatusQueued)
	require.NoError(t, err)

	list, total, err := svc.ListEpisodes(ctx, ListFilter{FeedID: feed.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = svc.ListEpisodes(ctx, ListFilter{Status: models.EpisodeStatusQueued})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}
