package types

import (
	"github.com/ateesdalejr/podlistener/internal/database"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/feeds"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/internal/services/keywords"
	"github.com/ateesdalejr/podlistener/internal/services/mentions"
	"github.com/ateesdalejr/podlistener/internal/services/settings"
	"github.com/ateesdalejr/podlistener/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB             *database.DB
	FeedService    feeds.Service
	EpisodeService episodes.Service
	KeywordService keywords.Service
	MentionService mentions.Service
	SettingService settings.Service
	JobService     jobs.Service
	WorkerPool     *workers.WorkerPool
}
