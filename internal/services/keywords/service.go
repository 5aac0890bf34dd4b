package keywords

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

type service struct {
	repo Repository
}

// NewService creates a new keyword service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateKeyword registers a phrase to track. Regex keywords must compile up
// front so a bad pattern is rejected at the API instead of silently skipped
// during detection.
func (s *service) CreateKeyword(ctx context.Context, phrase string, matchType models.MatchType) (*models.Keyword, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, apperrors.ValidationError("phrase", "is required")
	}
	if matchType == "" {
		matchType = models.MatchTypeContains
	}
	if !models.ValidMatchType(string(matchType)) {
		return nil, apperrors.ValidationError("match_type", "must be one of contains, exact_word, regex")
	}
	if matchType == models.MatchTypeRegex {
		if _, err := regexp.Compile("(?i)" + phrase); err != nil {
			return nil, apperrors.ValidationError("phrase", "is not a valid regular expression")
		}
	}

	if existing, err := s.repo.GetByPhrase(ctx, phrase); err == nil {
		return existing, apperrors.AlreadyExists("keyword", existing.Phrase)
	}

	keyword := &models.Keyword{Phrase: phrase, MatchType: matchType}
	if err := s.repo.Create(ctx, keyword); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "creating keyword")
	}

	log.Printf("[DEBUG] Created keyword %s (%s, %s)", keyword.ID, keyword.Phrase, keyword.MatchType)
	return keyword, nil
}

func (s *service) GetKeyword(ctx context.Context, id string) (*models.Keyword, error) {
	keyword, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrKeywordNotFound {
			return nil, apperrors.NotFound("keyword", id)
		}
		return nil, err
	}
	return keyword, nil
}

func (s *service) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateKeyword(ctx context.Context, id string, phrase *string, matchType *models.MatchType) (*models.Keyword, error) {
	keyword, err := s.GetKeyword(ctx, id)
	if err != nil {
		return nil, err
	}

	if phrase != nil {
		trimmed := strings.TrimSpace(*phrase)
		if trimmed == "" {
			return nil, apperrors.ValidationError("phrase", "is required")
		}
		keyword.Phrase = trimmed
	}
	if matchType != nil {
		if !models.ValidMatchType(string(*matchType)) {
			return nil, apperrors.ValidationError("match_type", "must be one of contains, exact_word, regex")
		}
		keyword.MatchType = *matchType
	}
	if keyword.MatchType == models.MatchTypeRegex {
		if _, err := regexp.Compile("(?i)" + keyword.Phrase); err != nil {
			return nil, apperrors.ValidationError("phrase", "is not a valid regular expression")
		}
	}

	if err := s.repo.Update(ctx, keyword); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "updating keyword")
	}
	return keyword, nil
}

func (s *service) DeleteKeyword(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == ErrKeywordNotFound {
			return apperrors.NotFound("keyword", id)
		}
		return err
	}
	log.Printf("[DEBUG] Deleted keyword %s", id)
	return nil
}
