package models

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EpisodeStatus tracks an episode through the processing pipeline.
type EpisodeStatus string

const (
	EpisodeStatusPending      EpisodeStatus = "pending"
	EpisodeStatusQueued       EpisodeStatus = "queued"
	EpisodeStatusDownloading  EpisodeStatus = "downloading"
	EpisodeStatusTranscribing EpisodeStatus = "transcribing"
	EpisodeStatusAnalyzing    EpisodeStatus = "analyzing"
	EpisodeStatusCompleted    EpisodeStatus = "completed"
	EpisodeStatusFailed       EpisodeStatus = "failed"
)

// MatchType selects the keyword matching policy.
type MatchType string

const (
	MatchTypeContains  MatchType = "contains"
	MatchTypeExactWord MatchType = "exact_word"
	MatchTypeRegex     MatchType = "regex"
)

// ValidMatchType reports whether s is a supported match policy.
func ValidMatchType(s string) bool {
	switch MatchType(s) {
	case MatchTypeContains, MatchTypeExactWord, MatchTypeRegex:
		return true
	}
	return false
}

// Sentiment values accepted on a Mention after validation.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// MaxErrorMessageLen bounds the user-visible failure summary on an episode.
const MaxErrorMessageLen = 500

// Feed represents a subscribed RSS/Atom feed.
type Feed struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	RSSURL       string     `json:"rss_url" gorm:"uniqueIndex;not null"`
	Title        *string    `json:"title"`
	ImageURL     *string    `json:"image_url"`
	LastPolledAt *time.Time `json:"last_polled_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Episodes []Episode `json:"episodes,omitempty" gorm:"foreignKey:FeedID;constraint:OnDelete:CASCADE"`
}

func (f *Feed) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Episode is a single audio item discovered in a feed, keyed by its feed GUID.
type Episode struct {
	ID          string        `json:"id" gorm:"primaryKey;size:36"`
	FeedID      string        `json:"feed_id" gorm:"size:36;not null;index"`
	GUID        string        `json:"guid" gorm:"uniqueIndex;not null"`
	Title       *string       `json:"title"`
	AudioURL    *string       `json:"audio_url"`
	PublishedAt *time.Time    `json:"published_at"`
	Status      EpisodeStatus `json:"status" gorm:"default:'pending';index"`
	// TranscriptText is null until transcription finishes; an empty string is a
	// valid transcript distinct from null.
	TranscriptText *string   `json:"transcript_text" gorm:"type:text"`
	ErrorMessage   *string   `json:"error_message" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Mentions []Mention `json:"mentions,omitempty" gorm:"foreignKey:EpisodeID;constraint:OnDelete:CASCADE"`
}

func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the episode reached a terminal pipeline state.
func (e *Episode) IsTerminal() bool {
	return e.Status == EpisodeStatusCompleted || e.Status == EpisodeStatusFailed
}

// TruncateError bounds an error string to the persisted error_message size,
// cutting back to a rune boundary so the stored value stays valid UTF-8.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	cut := MaxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

// Keyword is a user-defined phrase to track across transcripts.
type Keyword struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Phrase    string    `json:"phrase" gorm:"uniqueIndex;not null"`
	MatchType MatchType `json:"match_type" gorm:"default:'contains'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Mentions []Mention `json:"mentions,omitempty" gorm:"foreignKey:KeywordID;constraint:OnDelete:CASCADE"`
}

func (k *Keyword) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Mention is one keyword hit in one episode transcript, enriched by the LLM.
// The tuple (episode_id, keyword_id, matched_text, transcript_segment) is the
// idempotency key; the segment participates via its hash because it can be long.
type Mention struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	EpisodeID         string     `json:"episode_id" gorm:"size:36;not null;index;uniqueIndex:idx_mention_tuple"`
	KeywordID         string     `json:"keyword_id" gorm:"size:36;not null;index;uniqueIndex:idx_mention_tuple"`
	MatchedText       string     `json:"matched_text" gorm:"not null;uniqueIndex:idx_mention_tuple"`
	TranscriptSegment string     `json:"transcript_segment" gorm:"type:text;not null"`
	SegmentHash       string     `json:"-" gorm:"size:64;not null;uniqueIndex:idx_mention_tuple"`
	Sentiment         *string    `json:"sentiment"`
	SentimentScore    *float64   `json:"sentiment_score"`
	ContextSummary    *string    `json:"context_summary" gorm:"type:text"`
	Topics            StringList `json:"topics" gorm:"type:json"`
	IsBuyingSignal    *bool      `json:"is_buying_signal"`
	IsPainPoint       *bool      `json:"is_pain_point"`
	IsRecommendation  *bool      `json:"is_recommendation"`
	RawLLMResponse    JSONMap    `json:"raw_llm_response,omitempty" gorm:"type:json"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (m *Mention) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SegmentHash == "" {
		m.SegmentHash = HashSegment(m.TranscriptSegment)
	}
	return nil
}

// HashSegment returns the hex sha256 of a transcript segment, used in the
// mention idempotency tuple in place of the raw text.
func HashSegment(segment string) string {
	sum := sha256.Sum256([]byte(segment))
	return hex.EncodeToString(sum[:])
}

// AppSetting is one row of the runtime-mutable key/value configuration store.
type AppSetting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     *string   `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AppSetting) TableName() string {
	return "app_settings"
}

// StringList stores a JSON array of strings in a single column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// JSONMap stores an arbitrary JSON object in a single column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for JSONMap")
	}
}
