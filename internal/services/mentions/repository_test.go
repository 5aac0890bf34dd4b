package mentions

import (
	"context"
	"fmt"
	"testing"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixtures struct {
	feed    *models.Feed
	episode *models.Episode
	keyword *models.Keyword
}

func setupTestRepo(t *testing.T) (Repository, *gorm.DB, fixtures) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(&models.Feed{}, &models.Episode{}, &models.Keyword{}, &models.Mention{}))

	feed := &models.Feed{RSSURL: "https://example.com/feed.xml"}
	require.NoError(t, db.Create(feed).Error)
	episode := &models.Episode{FeedID: feed.ID, GUID: "guid-1"}
	require.NoError(t, db.Create(episode).Error)
	keyword := &models.Keyword{Phrase: "kubernetes", MatchType: models.MatchTypeContains}
	require.NoError(t, db.Create(keyword).Error)

	return NewRepository(db), db, fixtures{feed: feed, episode: episode, keyword: keyword}
}

func TestRepository_CreateIfAbsent_Dedupe(t *testing.T) {
	repo, _, fx := setupTestRepo(t)
	ctx := context.Background()

	mention := &models.Mention{
		EpisodeID:         fx.episode.ID,
		KeywordID:         fx.keyword.ID,
		MatchedText:       "Kubernetes",
		TranscriptSegment: "...we moved everything to Kubernetes last year...",
	}
	created, err := repo.CreateIfAbsent(ctx, mention)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, mention.SegmentHash)

	// Identical tuple is swallowed
	dup := &models.Mention{
		EpisodeID:         fx.episode.ID,
		KeywordID:         fx.keyword.ID,
		MatchedText:       "Kubernetes",
		TranscriptSegment: "...we moved everything to Kubernetes last year...",
	}
	created, err = repo.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	// Same match in a different segment is a distinct mention
	other := &models.Mention{
		EpisodeID:         fx.episode.ID,
		KeywordID:         fx.keyword.ID,
		MatchedText:       "Kubernetes",
		TranscriptSegment: "...Kubernetes again, later in the show...",
	}
	created, err = repo.CreateIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)

	total, err := repo.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestRepository_List_Filters(t *testing.T) {
	repo, db, fx := setupTestRepo(t)
	ctx := context.Background()

	otherFeed := &models.Feed{RSSURL: "https://example.com/other.xml"}
	require.NoError(t, db.Create(otherFeed).Error)
	otherEpisode := &models.Episode{FeedID: otherFeed.ID, GUID: "guid-2"}
	require.NoError(t, db.Create(otherEpisode).Error)

	positive := models.SentimentPositive
	buying := true
	mentionsToCreate := []*models.Mention{
		{EpisodeID: fx.episode.ID, KeywordID: fx.keyword.ID, MatchedText: "m1",
			TranscriptSegment: "seg1", Sentiment: &positive, IsBuyingSignal: &buying},
		{EpisodeID: fx.episode.ID, KeywordID: fx.keyword.ID, MatchedText: "m2",
			TranscriptSegment: "seg2"},
		{EpisodeID: otherEpisode.ID, KeywordID: fx.keyword.ID, MatchedText: "m3",
			TranscriptSegment: "seg3"},
	}
	for _, m := range mentionsToCreate {
		created, err := repo.CreateIfAbsent(ctx, m)
		require.NoError(t, err)
		require.True(t, created)
	}

	t.Run("by feed via episode join", func(t *testing.T) {
		got, total, err := repo.List(ctx, ListFilter{FeedID: fx.feed.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, got, 2)
	})

	t.Run("by sentiment", func(t *testing.T) {
		got, total, err := repo.List(ctx, ListFilter{Sentiment: models.SentimentPositive})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, "m1", got[0].MatchedText)
	})

	t.Run("by buying signal flag", func(t *testing.T) {
		flag := true
		_, total, err := repo.List(ctx, ListFilter{IsBuyingSignal: &flag})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("pagination", func(t *testing.T) {
		got, total, err := repo.List(ctx, ListFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, got, 1)
	})
}

func TestRepository_DeleteByEpisode(t *testing.T) {
	repo, _, fx := setupTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		created, err := repo.CreateIfAbsent(ctx, &models.Mention{
			EpisodeID:         fx.episode.ID,
			KeywordID:         fx.keyword.ID,
			MatchedText:       "kubernetes",
			TranscriptSegment: fmt.Sprintf("segment %d", i),
		})
		require.NoError(t, err)
		require.True(t, created)
	}

	deleted, err := repo.DeleteByEpisode(ctx, fx.episode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	total, err := repo.CountTotal(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRepository_Aggregates(t *testing.T) {
	repo, db, fx := setupTestRepo(t)
	ctx := context.Background()

	second := &models.Keyword{Phrase: "terraform", MatchType: models.MatchTypeContains}
	require.NoError(t, db.Create(second).Error)

	pos := models.SentimentPositive
	neg := models.SentimentNegative
	seed := []*models.Mention{
		{EpisodeID: fx.episode.ID, KeywordID: fx.keyword.ID, MatchedText: "a", TranscriptSegment: "s1", Sentiment: &pos},
		{EpisodeID: fx.episode.ID, KeywordID: fx.keyword.ID, MatchedText: "b", TranscriptSegment: "s2", Sentiment: &neg},
		{EpisodeID: fx.episode.ID, KeywordID: second.ID, MatchedText: "c", TranscriptSegment: "s3"},
	}
	for _, m := range seed {
		created, err := repo.CreateIfAbsent(ctx, m)
		require.NoError(t, err)
		require.True(t, created)
	}

	counts, err := repo.CountByKeyword(ctx, 10)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "kubernetes", counts[0].Phrase)
	assert.Equal(t, int64(2), counts[0].Count)

	sentiments, err := repo.CountBySentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sentiments[models.SentimentPositive])
	assert.Equal(t, int64(1), sentiments[models.SentimentNegative])
	assert.NotContains(t, sentiments, "", "unenriched mentions are excluded")

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
