package episodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEpisodeNotFound is returned when an episode does not exist
var ErrEpisodeNotFound = errors.New("episode not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new episode repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, episode *models.Episode) error {
	return r.db.WithContext(ctx).Create(episode).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).First(&episode, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("getting episode: %w", err)
	}
	return &episode, nil
}

func (r *repository) GetByGUID(ctx context.Context, guid string) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).First(&episode, "guid = ?", guid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("getting episode by guid: %w", err)
	}
	return &episode, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Episode, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Episode{})
	if filter.FeedID != "" {
		query = query.Where("feed_id = ?", filter.FeedID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting episodes: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var episodes []models.Episode
	err := query.
		// NULLS LAST so undated episodes sort after dated ones
		Order("published_at IS NULL, published_at DESC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&episodes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing episodes: %w", err)
	}
	return episodes, total, nil
}

func (r *repository) Update(ctx context.Context, episode *models.Episode) error {
	episode.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(episode).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status models.EpisodeStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Episode{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating episode status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEpisodeNotFound
	}
	return nil
}

// QueueTopRecent selects the feed's limit newest episodes (undated ones
// last) and flips the pending ones among them to queued, returning the rows
// it moved. The flip is one conditional update inside a transaction: a
// concurrent poll that raced the select moves nothing twice, and episodes
// deeper in the feed than the window are never promoted.
func (r *repository) QueueTopRecent(ctx context.Context, feedID string, limit int) ([]models.Episode, error) {
	var moved []models.Episode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var top []models.Episode
		if err := tx.
			Where("feed_id = ?", feedID).
			Order("published_at IS NULL, published_at DESC, created_at DESC").
			Limit(limit).
			Find(&top).Error; err != nil {
			return fmt.Errorf("listing newest episodes: %w", err)
		}

		ids := make([]string, 0, len(top))
		for _, episode := range top {
			if episode.Status == models.EpisodeStatusPending {
				ids = append(ids, episode.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		var flipped []models.Episode
		res := tx.Model(&flipped).
			Clauses(clause.Returning{}).
			Where("id IN ? AND status = ?", ids, models.EpisodeStatusPending).
			Updates(map[string]interface{}{
				"status":     models.EpisodeStatusQueued,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("queueing episodes: %w", res.Error)
		}

		wasMoved := make(map[string]bool, len(flipped))
		for _, episode := range flipped {
			wasMoved[episode.ID] = true
		}
		// Keep the newest-first order of the window, not the update's
		for _, episode := range top {
			if wasMoved[episode.ID] {
				episode.Status = models.EpisodeStatusQueued
				moved = append(moved, episode)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[models.EpisodeStatus]int64, error) {
	type row struct {
		Status models.EpisodeStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Episode{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting episodes by status: %w", err)
	}

	counts := make(map[models.EpisodeStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
