package episodes

import (
	"context"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// ListFilter narrows episode listings.
type ListFilter struct {
	FeedID string
	Status models.EpisodeStatus
	Page   int
	Limit  int
}

// Repository defines the interface for episode persistence
type Repository interface {
	Create(ctx context.Context, episode *models.Episode) error
	GetByID(ctx context.Context, id string) (*models.Episode, error)
	GetByGUID(ctx context.Context, guid string) (*models.Episode, error)
	List(ctx context.Context, filter ListFilter) ([]models.Episode, int64, error)
	Update(ctx context.Context, episode *models.Episode) error
	UpdateStatus(ctx context.Context, id string, status models.EpisodeStatus) error
	QueueTopRecent(ctx context.Context, feedID string, limit int) ([]models.Episode, error)
	CountByStatus(ctx context.Context) (map[models.EpisodeStatus]int64, error)
}

// Service defines the business logic interface for the episode pipeline.
type Service interface {
	// UpsertByGUID creates the episode if its GUID is new and returns whether it
	// was created. Existing episodes are returned untouched.
	UpsertByGUID(ctx context.Context, episode *models.Episode) (*models.Episode, bool, error)

	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	ListEpisodes(ctx context.Context, filter ListFilter) ([]models.Episode, int64, error)

	// Pipeline transitions
	Transition(ctx context.Context, id string, to models.EpisodeStatus) (*models.Episode, error)
	SetTranscript(ctx context.Context, id string, transcript string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	MarkCompleted(ctx context.Context, id string) error

	// QueueRecentPending flips the pending episodes among the feed's limit
	// newest episodes to queued and returns them for enqueueing. Episodes
	// outside that window stay pending, so repeated polls never walk down
	// a feed's backlog.
	QueueRecentPending(ctx context.Context, feedID string, limit int) ([]models.Episode, error)

	// Failure recovery
	ResetForReprocess(ctx context.Context, id string) (*models.Episode, error)
	ResetForEnrichmentRetry(ctx context.Context, id string) (*models.Episode, error)

	CountByStatus(ctx context.Context) (map[models.EpisodeStatus]int64, error)
}
