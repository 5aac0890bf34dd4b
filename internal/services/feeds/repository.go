package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"gorm.io/gorm"
)

// ErrFeedNotFound is returned when a feed does not exist
var ErrFeedNotFound = errors.New("feed not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new feed repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, feed *models.Feed) error {
	return r.db.WithContext(ctx).Create(feed).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Feed, error) {
	var feed models.Feed
	err := r.db.WithContext(ctx).First(&feed, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("getting feed: %w", err)
	}
	return &feed, nil
}

func (r *repository) GetByURL(ctx context.Context, rssURL string) (*models.Feed, error) {
	var feed models.Feed
	err := r.db.WithContext(ctx).First(&feed, "rss_url = ?", rssURL).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("getting feed by url: %w", err)
	}
	return &feed, nil
}

func (r *repository) List(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&feeds).Error
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	return feeds, nil
}

func (r *repository) Update(ctx context.Context, feed *models.Feed) error {
	feed.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(feed).Error
}

// Delete removes the feed; episodes and their mentions go with it via cascade.
func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Feed{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting feed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFeedNotFound
	}
	return nil
}

func (r *repository) CountEpisodes(ctx context.Context, feedID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Episode{}).
		Where("feed_id = ?", feedID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting episodes: %w", err)
	}
	return count, nil
}
