package feedparse

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ParsedFeed is the channel-level metadata extracted from an RSS/Atom document.
type ParsedFeed struct {
	Title    string
	ImageURL string
	Items    []ParsedItem
}

// ParsedItem is one episode entry. GUID falls back to the item link; entries
// with no identity at all are emitted with an empty GUID and rejected by the
// poller.
type ParsedItem struct {
	GUID        string
	Title       string
	AudioURL    string
	PublishedAt *time.Time
}

// Parser wraps gofeed with the project's item extraction rules.
type Parser struct {
	parser *gofeed.Parser
}

// New creates a feed parser.
func New(userAgent string) *Parser {
	fp := gofeed.NewParser()
	if userAgent != "" {
		fp.UserAgent = userAgent
	}
	return &Parser{parser: fp}
}

// FetchAndParse downloads and parses the feed at url.
func (p *Parser) FetchAndParse(ctx context.Context, url string) (*ParsedFeed, error) {
	feed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeFeedParse, "parsing feed %s", url)
	}
	return p.extract(feed), nil
}

// ParseString parses an already-fetched feed document.
func (p *Parser) ParseString(body string) (*ParsedFeed, error) {
	feed, err := p.parser.ParseString(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFeedParse, "parsing feed body")
	}
	return p.extract(feed), nil
}

func (p *Parser) extract(feed *gofeed.Feed) *ParsedFeed {
	out := &ParsedFeed{
		Title: strings.TrimSpace(feed.Title),
	}
	if feed.Image != nil {
		out.ImageURL = feed.Image.URL
	} else if feed.ITunesExt != nil {
		out.ImageURL = feed.ITunesExt.Image
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed := ParsedItem{
			Title:    strings.TrimSpace(item.Title),
			AudioURL: audioURL(item),
		}

		parsed.GUID = strings.TrimSpace(item.GUID)
		if parsed.GUID == "" {
			parsed.GUID = strings.TrimSpace(item.Link)
		}

		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			parsed.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			parsed.PublishedAt = &t
		}

		out.Items = append(out.Items, parsed)
	}

	return out
}

// audioURL returns the first audio/* enclosure. Entries carrying only other
// media types (video-only feeds, PDFs) come back empty and the poller skips
// them.
func audioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") {
			return enc.URL
		}
	}
	return ""
}
