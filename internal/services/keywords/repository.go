package keywords

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"gorm.io/gorm"
)

// ErrKeywordNotFound is returned when a keyword does not exist
var ErrKeywordNotFound = errors.New("keyword not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new keyword repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, keyword *models.Keyword) error {
	return r.db.WithContext(ctx).Create(keyword).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Keyword, error) {
	var keyword models.Keyword
	err := r.db.WithContext(ctx).First(&keyword, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeywordNotFound
		}
		return nil, fmt.Errorf("getting keyword: %w", err)
	}
	return &keyword, nil
}

func (r *repository) GetByPhrase(ctx context.Context, phrase string) (*models.Keyword, error) {
	var keyword models.Keyword
	err := r.db.WithContext(ctx).First(&keyword, "phrase = ?", phrase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeywordNotFound
		}
		return nil, fmt.Errorf("getting keyword by phrase: %w", err)
	}
	return &keyword, nil
}

func (r *repository) List(ctx context.Context) ([]models.Keyword, error) {
	var keywords []models.Keyword
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&keywords).Error
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	return keywords, nil
}

func (r *repository) Update(ctx context.Context, keyword *models.Keyword) error {
	keyword.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(keyword).Error
}

// Delete removes the keyword; its mentions go with it via cascade.
func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Keyword{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting keyword: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrKeywordNotFound
	}
	return nil
}
