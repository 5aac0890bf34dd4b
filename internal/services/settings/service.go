package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Runtime-mutable setting keys. Values stored here overlay the static
// configuration so the transcription backend can be switched without a
// restart.
const (
	KeyTranscriptionProvider       = "transcription_provider"
	KeyTranscriptionExternalURL    = "transcription_external_base_url"
	KeyTranscriptionExternalAPIKey = "transcription_external_api_key"
	KeyTranscriptionModel          = "transcription_model"
)

// ProviderLocal and ProviderExternal are the accepted transcription providers.
const (
	ProviderLocal    = "local"
	ProviderExternal = "external"
)

var knownKeys = map[string]bool{
	KeyTranscriptionProvider:       true,
	KeyTranscriptionExternalURL:    true,
	KeyTranscriptionExternalAPIKey: true,
	KeyTranscriptionModel:          true,
}

// secretKeys are masked in read APIs.
var secretKeys = map[string]bool{
	KeyTranscriptionExternalAPIKey: true,
}

// Service reads and writes the runtime settings store.
type Service interface {
	// Get returns the stored value for key, or ("", false) when unset.
	Get(ctx context.Context, key string) (string, bool, error)
	// GetAll returns all stored settings with secret values masked.
	GetAll(ctx context.Context) (map[string]string, error)
	// Set upserts a value; empty value deletes the override.
	Set(ctx context.Context, key, value string) error
	// SetAll applies a batch of updates atomically.
	SetAll(ctx context.Context, values map[string]string) error
}

type service struct {
	db *gorm.DB
}

// NewService creates a settings service backed by the app_settings table.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) Get(ctx context.Context, key string) (string, bool, error) {
	var setting models.AppSetting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting setting %s: %w", key, err)
	}
	if setting.Value == nil {
		return "", false, nil
	}
	return *setting.Value, true, nil
}

func (s *service) GetAll(ctx context.Context) (map[string]string, error) {
	var settings []models.AppSetting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}

	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		if setting.Value == nil {
			continue
		}
		if secretKeys[setting.Key] {
			out[setting.Key] = mask(*setting.Value)
		} else {
			out[setting.Key] = *setting.Value
		}
	}
	return out, nil
}

func (s *service) Set(ctx context.Context, key, value string) error {
	return s.SetAll(ctx, map[string]string{key: value})
}

func (s *service) SetAll(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if err := validate(key, value); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if value == "" {
				if err := tx.Delete(&models.AppSetting{}, "key = ?", key).Error; err != nil {
					return fmt.Errorf("clearing setting %s: %w", key, err)
				}
				log.Printf("[DEBUG] Cleared setting %s", key)
				continue
			}

			v := value
			setting := models.AppSetting{Key: key, Value: &v}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error
			if err != nil {
				return fmt.Errorf("saving setting %s: %w", key, err)
			}
		}
		return nil
	})
}

func validate(key, value string) error {
	if !knownKeys[key] {
		return apperrors.ValidationError(key, "is not a recognized setting")
	}
	if key == KeyTranscriptionProvider && value != "" &&
		value != ProviderLocal && value != ProviderExternal {
		return apperrors.ValidationError(key, "must be local or external")
	}
	if key == KeyTranscriptionExternalURL && value != "" &&
		!strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return apperrors.ValidationError(key, "must be an http(s) URL")
	}
	return nil
}

func mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
