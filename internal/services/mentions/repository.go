package mentions

import (
	"context"
	"errors"
	"fmt"

	"github.com/ateesdalejr/podlistener/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMentionNotFound is returned when a mention does not exist
var ErrMentionNotFound = errors.New("mention not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new mention repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateIfAbsent inserts the mention, relying on the unique tuple index to
// swallow duplicates. Returns false when the tuple already existed.
func (r *repository) CreateIfAbsent(ctx context.Context, mention *models.Mention) (bool, error) {
	if mention.SegmentHash == "" {
		mention.SegmentHash = models.HashSegment(mention.TranscriptSegment)
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "episode_id"},
				{Name: "keyword_id"},
				{Name: "matched_text"},
				{Name: "segment_hash"},
			},
			DoNothing: true,
		}).
		Create(mention)
	if res.Error != nil {
		return false, fmt.Errorf("creating mention: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Exists(ctx context.Context, episodeID, keywordID, matchedText, segment string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Mention{}).
		Where("episode_id = ? AND keyword_id = ? AND matched_text = ? AND segment_hash = ?",
			episodeID, keywordID, matchedText, models.HashSegment(segment)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking mention existence: %w", err)
	}
	return count > 0, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Mention, error) {
	var mention models.Mention
	err := r.db.WithContext(ctx).First(&mention, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMentionNotFound
		}
		return nil, fmt.Errorf("getting mention: %w", err)
	}
	return &mention, nil
}

// applyFilter narrows a mentions query. The episodes join is only added when
// the feed filter needs it; ListDetailed joins unconditionally instead.
func applyFilter(query *gorm.DB, filter ListFilter, joined bool) *gorm.DB {
	if filter.EpisodeID != "" {
		query = query.Where("mentions.episode_id = ?", filter.EpisodeID)
	}
	if filter.KeywordID != "" {
		query = query.Where("mentions.keyword_id = ?", filter.KeywordID)
	}
	if filter.FeedID != "" {
		if !joined {
			query = query.Joins("JOIN episodes ON episodes.id = mentions.episode_id")
		}
		query = query.Where("episodes.feed_id = ?", filter.FeedID)
	}
	if filter.Sentiment != "" {
		query = query.Where("mentions.sentiment = ?", filter.Sentiment)
	}
	if filter.IsBuyingSignal != nil {
		query = query.Where("mentions.is_buying_signal = ?", *filter.IsBuyingSignal)
	}
	if filter.IsPainPoint != nil {
		query = query.Where("mentions.is_pain_point = ?", *filter.IsPainPoint)
	}
	return query
}

func pageBounds(filter ListFilter) (offset, limit int) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit = filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return (page - 1) * limit, limit
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Mention, int64, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Mention{}), filter, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting mentions: %w", err)
	}

	offset, limit := pageBounds(filter)
	var out []models.Mention
	err := query.
		Order("mentions.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing mentions: %w", err)
	}
	return out, total, nil
}

// ListDetailed joins episodes, feeds and keywords so the API can show titles
// without a lookup per row.
func (r *repository) ListDetailed(ctx context.Context, filter ListFilter) ([]MentionDetail, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.Mention{}).
		Joins("JOIN episodes ON episodes.id = mentions.episode_id").
		Joins("JOIN feeds ON feeds.id = episodes.feed_id").
		Joins("JOIN keywords ON keywords.id = mentions.keyword_id")
	query := applyFilter(base, filter, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting mentions: %w", err)
	}

	offset, limit := pageBounds(filter)
	var out []MentionDetail
	err := query.
		Select("mentions.id, mentions.episode_id, mentions.keyword_id, mentions.matched_text, " +
			"mentions.transcript_segment, mentions.sentiment, mentions.sentiment_score, " +
			"mentions.context_summary, mentions.topics, mentions.is_buying_signal, " +
			"mentions.is_pain_point, mentions.is_recommendation, mentions.created_at, " +
			"episodes.title AS episode_title, feeds.title AS podcast_title, " +
			"keywords.phrase AS keyword_phrase").
		Order("mentions.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing mentions: %w", err)
	}
	return out, total, nil
}

func (r *repository) DeleteByEpisode(ctx context.Context, episodeID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Delete(&models.Mention{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting episode mentions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *repository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Mention{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting mentions: %w", err)
	}
	return count, nil
}

func (r *repository) CountByEpisode(ctx context.Context, feedID string) (map[string]int64, error) {
	type row struct {
		EpisodeID string
		Count     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Mention{}).
		Select("mentions.episode_id, count(*) as count").
		Joins("JOIN episodes ON episodes.id = mentions.episode_id").
		Where("episodes.feed_id = ?", feedID).
		Group("mentions.episode_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting mentions by episode: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.EpisodeID] = r.Count
	}
	return out, nil
}

func (r *repository) CountByKeyword(ctx context.Context, limit int) ([]KeywordCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []KeywordCount
	err := r.db.WithContext(ctx).
		Model(&models.Mention{}).
		Select("mentions.keyword_id, keywords.phrase, count(*) as count").
		Joins("JOIN keywords ON keywords.id = mentions.keyword_id").
		Group("mentions.keyword_id, keywords.phrase").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting mentions by keyword: %w", err)
	}
	return rows, nil
}

func (r *repository) CountBySentiment(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Sentiment string
		Count     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Mention{}).
		Select("sentiment, count(*) as count").
		Where("sentiment IS NOT NULL").
		Group("sentiment").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting mentions by sentiment: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Sentiment] = r.Count
	}
	return out, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Mention, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []models.Mention
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent mentions: %w", err)
	}
	return out, nil
}
