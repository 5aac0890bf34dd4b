package types

// SubscribeFeedRequest for POST /feeds
type SubscribeFeedRequest struct {
	URL string `json:"url" binding:"required"`
}

// CreateKeywordRequest for POST /keywords
type CreateKeywordRequest struct {
	Phrase    string `json:"phrase" binding:"required"`
	MatchType string `json:"match_type"`
}

// UpdateKeywordRequest for PUT /keywords/:id
type UpdateKeywordRequest struct {
	Phrase    *string `json:"phrase"`
	MatchType *string `json:"match_type"`
}

// UpdateTranscriptionSettingsRequest for PUT /settings/transcription. Omitted
// fields are left untouched; ClearExternalAPIKey removes the stored key.
type UpdateTranscriptionSettingsRequest struct {
	Provider            *string `json:"provider"`
	ExternalBaseURL     *string `json:"external_base_url"`
	ExternalAPIKey      *string `json:"external_api_key"`
	Model               *string `json:"model"`
	ClearExternalAPIKey bool    `json:"clear_external_api_key"`
}
