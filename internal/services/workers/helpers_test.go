package workers

import (
	"context"
	"testing"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/feeds"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/internal/services/keywords"
	"github.com/ateesdalejr/podlistener/internal/services/mentions"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// env is a full in-memory service graph for processor tests.
type env struct {
	db       *gorm.DB
	jobs     jobs.Service
	feeds    feeds.Service
	episodes episodes.Service
	keywords keywords.Service
	mentions mentions.Service
}

func newEnv(t *testing.T) *env {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(
		&models.Feed{}, &models.Episode{}, &models.Keyword{},
		&models.Mention{}, &models.Job{}, &models.AppSetting{},
	))

	return &env{
		db:       db,
		jobs:     jobs.NewService(jobs.NewRepository(db)),
		feeds:    feeds.NewService(feeds.NewRepository(db)),
		episodes: episodes.NewService(episodes.NewRepository(db)),
		keywords: keywords.NewService(keywords.NewRepository(db)),
		mentions: mentions.NewService(mentions.NewRepository(db)),
	}
}

func (e *env) createFeed(t *testing.T, url string) *models.Feed {
	feed, err := e.feeds.Subscribe(context.Background(), url)
	require.NoError(t, err)
	return feed
}

func (e *env) createEpisode(t *testing.T, feedID string, mutate func(*models.Episode)) *models.Episode {
	episode := &models.Episode{FeedID: feedID, GUID: "guid-" + feedID}
	if mutate != nil {
		mutate(episode)
	}
	require.NoError(t, e.db.Create(episode).Error)
	return episode
}

func (e *env) keywordLookup() KeywordPhraseLookup {
	return func(ctx context.Context, keywordID string) (string, error) {
		kw, err := e.keywords.GetKeyword(ctx, keywordID)
		if err != nil {
			return "", err
		}
		return kw.Phrase, nil
	}
}

func (e *env) episodeStatus(t *testing.T, id string) models.EpisodeStatus {
	episode, err := e.episodes.GetEpisode(context.Background(), id)
	require.NoError(t, err)
	return episode.Status
}

// pendingJobs returns non-terminal jobs for a task, newest last.
func (e *env) jobsForTask(t *testing.T, task models.TaskName) []models.Job {
	var out []models.Job
	require.NoError(t, e.db.Where("task = ?", task).Order("id ASC").Find(&out).Error)
	return out
}

func testJob(task models.TaskName, payload models.JobPayload, retryCount, maxRetries int) *models.Job {
	return &models.Job{
		Task:       task,
		Queue:      models.QueueForTask(task),
		Status:     models.JobStatusProcessing,
		Payload:    payload,
		RetryCount: retryCount,
		MaxRetries: maxRetries,
	}
}
