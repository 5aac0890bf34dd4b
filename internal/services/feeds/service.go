package feeds

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

type service struct {
	repo Repository
}

// NewService creates a new feed service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Subscribe registers a new feed URL. The URL must be http(s) and not already
// subscribed; metadata is filled in on the first poll.
func (s *service) Subscribe(ctx context.Context, rssURL string) (*models.Feed, error) {
	rssURL = strings.TrimSpace(rssURL)
	if err := validateFeedURL(rssURL); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByURL(ctx, rssURL); err == nil {
		return existing, apperrors.AlreadyExists("feed", existing.RSSURL)
	}

	feed := &models.Feed{RSSURL: rssURL}
	if err := s.repo.Create(ctx, feed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "creating feed")
	}

	log.Printf("[DEBUG] Subscribed to feed %s (%s)", feed.ID, feed.RSSURL)
	return feed, nil
}

func (s *service) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	feed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrFeedNotFound {
			return nil, apperrors.NotFound("feed", id)
		}
		return nil, err
	}
	return feed, nil
}

func (s *service) ListFeeds(ctx context.Context) ([]FeedWithCounts, error) {
	feeds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]FeedWithCounts, 0, len(feeds))
	for _, feed := range feeds {
		count, err := s.repo.CountEpisodes(ctx, feed.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, FeedWithCounts{Feed: feed, EpisodeCount: count})
	}
	return out, nil
}

// UpdateMetadata fills in title and image from the latest poll. A field is
// only written while still null; once set it is never overwritten, so user
// visible metadata survives a degraded feed document.
func (s *service) UpdateMetadata(ctx context.Context, id string, title, imageURL *string) error {
	feed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrFeedNotFound {
			return apperrors.NotFound("feed", id)
		}
		return err
	}

	changed := false
	if feed.Title == nil && title != nil && *title != "" {
		feed.Title = title
		changed = true
	}
	if feed.ImageURL == nil && imageURL != nil && *imageURL != "" {
		feed.ImageURL = imageURL
		changed = true
	}
	if !changed {
		return nil
	}
	return s.repo.Update(ctx, feed)
}

func (s *service) MarkPolled(ctx context.Context, id string) error {
	feed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrFeedNotFound {
			return apperrors.NotFound("feed", id)
		}
		return err
	}
	now := time.Now().UTC()
	feed.LastPolledAt = &now
	return s.repo.Update(ctx, feed)
}

func (s *service) Unsubscribe(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == ErrFeedNotFound {
			return apperrors.NotFound("feed", id)
		}
		return err
	}
	log.Printf("[DEBUG] Unsubscribed feed %s", id)
	return nil
}

func validateFeedURL(rssURL string) error {
	if rssURL == "" {
		return apperrors.ValidationError("rss_url", "is required")
	}
	parsed, err := url.Parse(rssURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return apperrors.ValidationError("rss_url", "must be a valid http(s) URL")
	}
	return nil
}
