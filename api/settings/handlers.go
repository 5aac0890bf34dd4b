package settings

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	settingsService "github.com/ateesdalejr/podlistener/internal/services/settings"
)

// GetTranscriptionSettings returns the runtime transcription overrides
// @Summary      Get transcription settings
// @Description  Runtime transcription configuration; the external API key is write-only and reported as a boolean
// @Tags         settings
// @Produce      json
// @Success      200 {object} types.TranscriptionSettingsResponse
// @Router       /api/v1/settings/transcription [get]
func GetTranscriptionSettings(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		all, err := deps.SettingService.GetAll(ctx)
		if err != nil {
			types.SendInternalError(c, "Failed to load settings")
			return
		}

		_, hasKey, err := deps.SettingService.Get(ctx, settingsService.KeyTranscriptionExternalAPIKey)
		if err != nil {
			types.SendInternalError(c, "Failed to load settings")
			return
		}

		c.JSON(200, types.TranscriptionSettingsResponse{
			Provider:          all[settingsService.KeyTranscriptionProvider],
			ExternalBaseURL:   all[settingsService.KeyTranscriptionExternalURL],
			Model:             all[settingsService.KeyTranscriptionModel],
			HasExternalAPIKey: hasKey,
		})
	}
}

// UpdateTranscriptionSettings writes runtime transcription overrides
// @Summary      Update transcription settings
// @Description  Omitted fields are left untouched; clear_external_api_key removes the stored key
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        settings body types.UpdateTranscriptionSettingsRequest true "Settings to change"
// @Success      200 {object} types.TranscriptionSettingsResponse
// @Failure      400 {object} types.ErrorResponse "Invalid provider or URL"
// @Router       /api/v1/settings/transcription [put]
func UpdateTranscriptionSettings(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.UpdateTranscriptionSettingsRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		values := map[string]string{}
		if req.Provider != nil {
			values[settingsService.KeyTranscriptionProvider] = *req.Provider
		}
		if req.ExternalBaseURL != nil {
			values[settingsService.KeyTranscriptionExternalURL] = *req.ExternalBaseURL
		}
		if req.Model != nil {
			values[settingsService.KeyTranscriptionModel] = *req.Model
		}
		if req.ClearExternalAPIKey {
			values[settingsService.KeyTranscriptionExternalAPIKey] = ""
		} else if req.ExternalAPIKey != nil && *req.ExternalAPIKey != "" {
			values[settingsService.KeyTranscriptionExternalAPIKey] = *req.ExternalAPIKey
		}

		if len(values) > 0 {
			if err := deps.SettingService.SetAll(c.Request.Context(), values); err != nil {
				types.SendError(c, err)
				return
			}
		}

		GetTranscriptionSettings(deps)(c)
	}
}
