package types

import (
	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/feeds"
	"github.com/ateesdalejr/podlistener/internal/services/mentions"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// FeedsResponse for the subscription list
type FeedsResponse struct {
	BaseResponse
	Feeds []feeds.FeedWithCounts `json:"feeds"`
	Count int                    `json:"count"`
}

// EpisodeSummary is an episode list row plus its mention count.
type EpisodeSummary struct {
	models.Episode
	MentionCount int64 `json:"mention_count"`
}

// EpisodesResponse for episode lists
type EpisodesResponse struct {
	BaseResponse
	Episodes []EpisodeSummary `json:"episodes"`
	Count    int              `json:"count"`
	Total    int64            `json:"total"`
}

// KeywordsResponse for the tracked keyword list
type KeywordsResponse struct {
	BaseResponse
	Keywords []models.Keyword `json:"keywords"`
	Count    int              `json:"count"`
}

// MentionsResponse for mention lists
type MentionsResponse struct {
	BaseResponse
	Mentions []mentions.MentionDetail `json:"mentions"`
	Count    int                      `json:"count"`
	Total    int64                    `json:"total"`
}

// DashboardResponse for the stats rollup
type DashboardResponse struct {
	BaseResponse
	Feeds            int64                          `json:"feeds"`
	Episodes         int64                          `json:"episodes"`
	EpisodesByStatus map[models.EpisodeStatus]int64 `json:"episodes_by_status"`
	Keywords         int64                          `json:"keywords"`
	Mentions         int64                          `json:"mentions"`
	TopKeywords      []mentions.KeywordCount        `json:"top_keywords"`
	Sentiments       map[string]int64               `json:"sentiments"`
	RecentMentions   []models.Mention               `json:"recent_mentions"`
}

// TranscriptionSettingsResponse for the runtime transcription settings.
// The API key itself is write-only.
type TranscriptionSettingsResponse struct {
	Provider          string `json:"provider"`
	ExternalBaseURL   string `json:"external_base_url"`
	Model             string `json:"model"`
	HasExternalAPIKey bool   `json:"has_external_api_key"`
}
