package mentions

import (
	"context"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// ListFilter narrows mention listings. FeedID filters through the episode
// join; boolean flags are tri-state so "unset" means no filter.
type ListFilter struct {
	EpisodeID      string
	KeywordID      string
	FeedID         string
	Sentiment      string
	IsBuyingSignal *bool
	IsPainPoint    *bool
	Page           int
	Limit          int
}

// MentionDetail is a mention joined with the display fields the list API
// shows: episode and podcast titles plus the keyword phrase.
type MentionDetail struct {
	ID                string            `json:"id"`
	EpisodeID         string            `json:"episode_id"`
	KeywordID         string            `json:"keyword_id"`
	MatchedText       string            `json:"matched_text"`
	TranscriptSegment string            `json:"transcript_segment"`
	Sentiment         *string           `json:"sentiment"`
	SentimentScore    *float64          `json:"sentiment_score"`
	ContextSummary    *string           `json:"context_summary"`
	Topics            models.StringList `json:"topics" gorm:"type:json"`
	IsBuyingSignal    *bool             `json:"is_buying_signal"`
	IsPainPoint       *bool             `json:"is_pain_point"`
	IsRecommendation  *bool             `json:"is_recommendation"`
	CreatedAt         time.Time         `json:"created_at"`

	EpisodeTitle  *string `json:"episode_title"`
	PodcastTitle  *string `json:"podcast_title"`
	KeywordPhrase string  `json:"keyword_phrase"`
}

// KeywordCount is the number of mentions for one keyword, for the dashboard.
type KeywordCount struct {
	KeywordID string `json:"keyword_id"`
	Phrase    string `json:"phrase"`
	Count     int64  `json:"count"`
}

// Repository defines the interface for mention persistence
type Repository interface {
	CreateIfAbsent(ctx context.Context, mention *models.Mention) (bool, error)
	Exists(ctx context.Context, episodeID, keywordID, matchedText, segment string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Mention, error)
	List(ctx context.Context, filter ListFilter) ([]models.Mention, int64, error)
	ListDetailed(ctx context.Context, filter ListFilter) ([]MentionDetail, int64, error)
	DeleteByEpisode(ctx context.Context, episodeID string) (int64, error)
	CountTotal(ctx context.Context) (int64, error)
	CountByEpisode(ctx context.Context, feedID string) (map[string]int64, error)
	CountByKeyword(ctx context.Context, limit int) ([]KeywordCount, error)
	CountBySentiment(ctx context.Context) (map[string]int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Mention, error)
}

// Service defines the business logic interface for keyword mentions
type Service interface {
	// RecordMention persists a mention unless the same (episode, keyword,
	// matched text, segment) tuple already exists. Returns whether it was
	// created, making redelivered enrichment jobs idempotent.
	RecordMention(ctx context.Context, mention *models.Mention) (bool, error)

	// MentionExists checks the idempotency tuple so enrichment retries can
	// skip matches that already cost an LLM call.
	MentionExists(ctx context.Context, episodeID, keywordID, matchedText, segment string) (bool, error)

	GetMention(ctx context.Context, id string) (*models.Mention, error)
	ListMentions(ctx context.Context, filter ListFilter) ([]models.Mention, int64, error)

	// ListMentionsDetailed is the API listing with joined display fields.
	ListMentionsDetailed(ctx context.Context, filter ListFilter) ([]MentionDetail, int64, error)

	// ClearEpisodeMentions removes all mentions of an episode before a fresh
	// detection pass.
	ClearEpisodeMentions(ctx context.Context, episodeID string) (int64, error)

	// MentionCountsByEpisode returns mention counts keyed by episode id for
	// one feed's episode listing.
	MentionCountsByEpisode(ctx context.Context, feedID string) (map[string]int64, error)

	// Dashboard aggregates
	CountTotal(ctx context.Context) (int64, error)
	TopKeywords(ctx context.Context, limit int) ([]KeywordCount, error)
	SentimentBreakdown(ctx context.Context) (map[string]int64, error)
	RecentMentions(ctx context.Context, limit int) ([]models.Mention, error)
}
