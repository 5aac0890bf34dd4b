package episodes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ateesdalejr/podlistener/api/episodes"
	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/database"
	"github.com/ateesdalejr/podlistener/internal/models"
	episodesService "github.com/ateesdalejr/podlistener/internal/services/episodes"
	feedsService "github.com/ateesdalejr/podlistener/internal/services/feeds"
	jobsService "github.com/ateesdalejr/podlistener/internal/services/jobs"
	mentionsService "github.com/ateesdalejr/podlistener/internal/services/mentions"
)

type EpisodeTestSuite struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	feed   *models.Feed
}

func setupEpisodeTestSuite(t *testing.T) *EpisodeTestSuite {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(
		&models.Feed{}, &models.Episode{}, &models.Keyword{}, &models.Mention{}, &models.Job{},
	))

	deps := &types.Dependencies{
		DB:             &database.DB{DB: db},
		FeedService:    feedsService.NewService(feedsService.NewRepository(db)),
		EpisodeService: episodesService.NewService(episodesService.NewRepository(db)),
		MentionService: mentionsService.NewService(mentionsService.NewRepository(db)),
		JobService:     jobsService.NewService(jobsService.NewRepository(db)),
	}

	router := gin.New()
	group := router.Group("/episodes")
	episodes.RegisterRoutes(group, deps)

	feed := &models.Feed{RSSURL: "https://example.com/feed.xml"}
	require.NoError(t, db.Create(feed).Error)

	return &EpisodeTestSuite{t: t, db: db, router: router, feed: feed}
}

func (suite *EpisodeTestSuite) createEpisode(guid string, mutate func(*models.Episode)) *models.Episode {
	episode := &models.Episode{FeedID: suite.feed.ID, GUID: guid}
	if mutate != nil {
		mutate(episode)
	}
	require.NoError(suite.t, suite.db.Create(episode).Error)
	return episode
}

func (suite *EpisodeTestSuite) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func TestListByFeed(t *testing.T) {
	suite := setupEpisodeTestSuite(t)

	transcript := "we use honeycomb for tracing"
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusCompleted
		ep.TranscriptText = &transcript
	})
	suite.createEpisode("guid-2", nil)

	keyword := &models.Keyword{Phrase: "honeycomb"}
	require.NoError(t, suite.db.Create(keyword).Error)
	mention := &models.Mention{
		EpisodeID:         episode.ID,
		KeywordID:         keyword.ID,
		MatchedText:       "honeycomb",
		TranscriptSegment: transcript,
	}
	require.NoError(t, suite.db.Create(mention).Error)

	w := suite.do(http.MethodGet, "/episodes/by-feed/"+suite.feed.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.EpisodesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.EqualValues(t, 2, resp.Total)

	counts := map[string]int64{}
	for _, ep := range resp.Episodes {
		counts[ep.GUID] = ep.MentionCount
		assert.Nil(t, ep.TranscriptText, "list view must not carry transcripts")
	}
	assert.EqualValues(t, 1, counts["guid-1"])
	assert.EqualValues(t, 0, counts["guid-2"])
}

func TestListByFeedUnknownFeed(t *testing.T) {
	suite := setupEpisodeTestSuite(t)
	assert.Equal(t, http.StatusNotFound, suite.do(http.MethodGet, "/episodes/by-feed/nope").Code)
}

func TestGetEpisodeDetail(t *testing.T) {
	suite := setupEpisodeTestSuite(t)

	transcript := "full transcript text"
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.TranscriptText = &transcript
	})

	w := suite.do(http.MethodGet, "/episodes/"+episode.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Episode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.TranscriptText)
	assert.Equal(t, transcript, *got.TranscriptText)

	assert.Equal(t, http.StatusNotFound, suite.do(http.MethodGet, "/episodes/nope").Code)
}

func TestReprocess(t *testing.T) {
	suite := setupEpisodeTestSuite(t)

	transcript := "stale transcript"
	errMsg := "transcription blew up"
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusFailed
		ep.TranscriptText = &transcript
		ep.ErrorMessage = &errMsg
	})

	w := suite.do(http.MethodPost, "/episodes/"+episode.ID+"/reprocess")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Episode
	require.NoError(t, suite.db.First(&got, "id = ?", episode.ID).Error)
	assert.Equal(t, models.EpisodeStatusPending, got.Status)
	assert.Nil(t, got.TranscriptText)
	assert.Nil(t, got.ErrorMessage)

	var jobs []models.Job
	require.NoError(t, suite.db.Where("task = ?", models.TaskProcessEpisode).Find(&jobs).Error)
	assert.Len(t, jobs, 1)
}

func TestReprocessRequiresFailedStatus(t *testing.T) {
	suite := setupEpisodeTestSuite(t)
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusCompleted
	})

	w := suite.do(http.MethodPost, "/episodes/"+episode.ID+"/reprocess")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRetryEnrichment(t *testing.T) {
	suite := setupEpisodeTestSuite(t)

	transcript := "saved transcript"
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusFailed
		ep.TranscriptText = &transcript
	})

	w := suite.do(http.MethodPost, "/episodes/"+episode.ID+"/retry-enrichment")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Episode
	require.NoError(t, suite.db.First(&got, "id = ?", episode.ID).Error)
	assert.Equal(t, models.EpisodeStatusAnalyzing, got.Status)
	// The transcript is the whole point of this path
	require.NotNil(t, got.TranscriptText)

	var jobs []models.Job
	require.NoError(t, suite.db.Where("task = ?", models.TaskDetectEpisodeKeywords).Find(&jobs).Error)
	require.Len(t, jobs, 1)
	done, _ := jobs[0].GetPayloadBool("transcription_done")
	assert.True(t, done)
}

func TestRetryEnrichmentRequiresTranscript(t *testing.T) {
	suite := setupEpisodeTestSuite(t)
	episode := suite.createEpisode("guid-1", func(ep *models.Episode) {
		ep.Status = models.EpisodeStatusFailed
	})

	w := suite.do(http.MethodPost, "/episodes/"+episode.ID+"/retry-enrichment")
	assert.Equal(t, http.StatusConflict, w.Code)
}
