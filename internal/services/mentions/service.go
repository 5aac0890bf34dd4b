package mentions

import (
	"context"
	"log"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

type service struct {
	repo Repository
}

// NewService creates a new mention service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RecordMention(ctx context.Context, mention *models.Mention) (bool, error) {
	if mention.EpisodeID == "" || mention.KeywordID == "" {
		return false, apperrors.ValidationError("mention", "episode_id and keyword_id are required")
	}
	if mention.MatchedText == "" {
		return false, apperrors.ValidationError("matched_text", "is required")
	}

	created, err := s.repo.CreateIfAbsent(ctx, mention)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "recording mention")
	}
	if !created {
		log.Printf("[DEBUG] Mention already recorded for episode=%s keyword=%s match=%q",
			mention.EpisodeID, mention.KeywordID, mention.MatchedText)
	}
	return created, nil
}

func (s *service) MentionExists(ctx context.Context, episodeID, keywordID, matchedText, segment string) (bool, error) {
	return s.repo.Exists(ctx, episodeID, keywordID, matchedText, segment)
}

func (s *service) GetMention(ctx context.Context, id string) (*models.Mention, error) {
	mention, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrMentionNotFound {
			return nil, apperrors.NotFound("mention", id)
		}
		return nil, err
	}
	return mention, nil
}

func (s *service) ListMentions(ctx context.Context, filter ListFilter) ([]models.Mention, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) ListMentionsDetailed(ctx context.Context, filter ListFilter) ([]MentionDetail, int64, error) {
	return s.repo.ListDetailed(ctx, filter)
}

func (s *service) ClearEpisodeMentions(ctx context.Context, episodeID string) (int64, error) {
	deleted, err := s.repo.DeleteByEpisode(ctx, episodeID)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "clearing episode mentions")
	}
	if deleted > 0 {
		log.Printf("[DEBUG] Cleared %d stale mentions for episode %s", deleted, episodeID)
	}
	return deleted, nil
}

func (s *service) MentionCountsByEpisode(ctx context.Context, feedID string) (map[string]int64, error) {
	return s.repo.CountByEpisode(ctx, feedID)
}

func (s *service) CountTotal(ctx context.Context) (int64, error) {
	return s.repo.CountTotal(ctx)
}

func (s *service) TopKeywords(ctx context.Context, limit int) ([]KeywordCount, error) {
	return s.repo.CountByKeyword(ctx, limit)
}

func (s *service) SentimentBreakdown(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountBySentiment(ctx)
}

func (s *service) RecentMentions(ctx context.Context, limit int) ([]models.Mention, error) {
	return s.repo.ListRecent(ctx, limit)
}
