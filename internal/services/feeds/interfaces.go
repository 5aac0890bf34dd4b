package feeds

import (
	"context"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// Repository defines the interface for feed persistence
type Repository interface {
	Create(ctx context.Context, feed *models.Feed) error
	GetByID(ctx context.Context, id string) (*models.Feed, error)
	GetByURL(ctx context.Context, rssURL string) (*models.Feed, error)
	List(ctx context.Context) ([]models.Feed, error)
	Update(ctx context.Context, feed *models.Feed) error
	Delete(ctx context.Context, id string) error
	CountEpisodes(ctx context.Context, feedID string) (int64, error)
}

// Service defines the business logic interface for feed subscriptions
type Service interface {
	Subscribe(ctx context.Context, rssURL string) (*models.Feed, error)
	GetFeed(ctx context.Context, id string) (*models.Feed, error)
	ListFeeds(ctx context.Context) ([]FeedWithCounts, error)
	UpdateMetadata(ctx context.Context, id string, title, imageURL *string) error
	MarkPolled(ctx context.Context, id string) error
	Unsubscribe(ctx context.Context, id string) error
}

// FeedWithCounts is a feed plus its episode count for list views.
type FeedWithCounts struct {
	models.Feed
	EpisodeCount int64 `json:"episode_count"`
}
