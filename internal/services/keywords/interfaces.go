package keywords

import (
	"context"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// Repository defines the interface for keyword persistence
type Repository interface {
	Create(ctx context.Context, keyword *models.Keyword) error
	GetByID(ctx context.Context, id string) (*models.Keyword, error)
	GetByPhrase(ctx context.Context, phrase string) (*models.Keyword, error)
	List(ctx context.Context) ([]models.Keyword, error)
	Update(ctx context.Context, keyword *models.Keyword) error
	Delete(ctx context.Context, id string) error
}

// Service defines the business logic interface for tracked keywords
type Service interface {
	CreateKeyword(ctx context.Context, phrase string, matchType models.MatchType) (*models.Keyword, error)
	GetKeyword(ctx context.Context, id string) (*models.Keyword, error)
	ListKeywords(ctx context.Context) ([]models.Keyword, error)
	UpdateKeyword(ctx context.Context, id string, phrase *string, matchType *models.MatchType) (*models.Keyword, error)
	DeleteKeyword(ctx context.Context, id string) error
}
