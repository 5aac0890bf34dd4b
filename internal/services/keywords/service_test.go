package keywords

import (
	"context"
	"testing"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(&models.Keyword{}))
	return NewService(NewRepository(db))
}

func TestService_CreateKeyword(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("defaults to contains", func(t *testing.T) {
		kw, err := svc.CreateKeyword(ctx, "kubernetes", "")
		require.NoError(t, err)
		assert.Equal(t, models.MatchTypeContains, kw.MatchType)
		assert.NotEmpty(t, kw.ID)
	})

	t.Run("rejects empty phrase", func(t *testing.T) {
		_, err := svc.CreateKeyword(ctx, "   ", models.MatchTypeContains)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects unknown match type", func(t *testing.T) {
		_, err := svc.CreateKeyword(ctx, "postgres", "fuzzy")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects invalid regex up front", func(t *testing.T) {
		_, err := svc.CreateKeyword(ctx, "[unclosed", models.MatchTypeRegex)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	})

	t.Run("duplicate phrase conflicts", func(t *testing.T) {
		_, err := svc.CreateKeyword(ctx, "terraform", models.MatchTypeExactWord)
		require.NoError(t, err)

		_, err = svc.CreateKeyword(ctx, "terraform", models.MatchTypeContains)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeAlreadyExists))
	})
}

func TestService_UpdateKeyword(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	kw, err := svc.CreateKeyword(ctx, "docker", models.MatchTypeContains)
	require.NoError(t, err)

	exact := models.MatchTypeExactWord
	updated, err := svc.UpdateKeyword(ctx, kw.ID, nil, &exact)
	require.NoError(t, err)
	assert.Equal(t, "docker", updated.Phrase, "nil phrase leaves the stored value")
	assert.Equal(t, models.MatchTypeExactWord, updated.MatchType)

	// Switching to regex re-validates the stored phrase
	bad := "a)("
	rx := models.MatchTypeRegex
	_, err = svc.UpdateKeyword(ctx, kw.ID, &bad, &rx)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}

func TestService_DeleteKeyword(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	kw, err := svc.CreateKeyword(ctx, "rust", models.MatchTypeContains)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteKeyword(ctx, kw.ID))

	_, err = svc.GetKeyword(ctx, kw.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	err = svc.DeleteKeyword(ctx, kw.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}
