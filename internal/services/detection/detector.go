package detection

import (
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// SegmentRadius is how many characters of surrounding transcript are captured
// on each side of a match.
const SegmentRadius = 300

// Match is one keyword hit in a transcript. MatchedText preserves the
// transcript's original casing.
type Match struct {
	KeywordID   string `json:"keyword_id"`
	MatchedText string `json:"matched_text"`
	Segment     string `json:"segment"`
}

// Detector finds keyword occurrences in transcripts.
type Detector struct{}

// New creates a detector.
func New() *Detector {
	return &Detector{}
}

// Detect scans the transcript against every keyword and returns all matches
// in keyword order. A keyword whose regex fails to compile is logged and
// skipped rather than failing the whole pass.
func (d *Detector) Detect(transcript string, keywords []models.Keyword) []Match {
	var matches []Match
	for _, keyword := range keywords {
		switch keyword.MatchType {
		case models.MatchTypeExactWord:
			matches = append(matches, d.regexMatches(transcript, keyword, `\b`+regexp.QuoteMeta(keyword.Phrase)+`\b`)...)
		case models.MatchTypeRegex:
			matches = append(matches, d.regexMatches(transcript, keyword, keyword.Phrase)...)
		default:
			matches = append(matches, d.containsMatches(transcript, keyword)...)
		}
	}
	return matches
}

// containsMatches finds case-insensitive substring occurrences, advancing past
// each match end so overlapping self-matches are not double counted.
func (d *Detector) containsMatches(transcript string, keyword models.Keyword) []Match {
	var matches []Match
	lowerTranscript := strings.ToLower(transcript)
	lowerPhrase := strings.ToLower(keyword.Phrase)
	if lowerPhrase == "" {
		return nil
	}

	offset := 0
	for {
		idx := strings.Index(lowerTranscript[offset:], lowerPhrase)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(lowerPhrase)
		matches = append(matches, Match{
			KeywordID:   keyword.ID,
			MatchedText: transcript[start:end],
			Segment:     Segment(transcript, start, end),
		})
		offset = end
	}
	return matches
}

func (d *Detector) regexMatches(transcript string, keyword models.Keyword, pattern string) []Match {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Printf("[WARN] Skipping keyword %s: invalid pattern %q: %v", keyword.ID, keyword.Phrase, err)
		return nil
	}

	var matches []Match
	for _, loc := range re.FindAllStringIndex(transcript, -1) {
		if loc[0] == loc[1] {
			continue // zero-width match
		}
		matches = append(matches, Match{
			KeywordID:   keyword.ID,
			MatchedText: transcript[loc[0]:loc[1]],
			Segment:     Segment(transcript, loc[0], loc[1]),
		})
	}
	return matches
}

// Segment extracts the transcript window around [start, end) with
// SegmentRadius characters of context each side, adding ellipses at truncated
// edges. The radius is counted in runes so multi-byte transcripts never get
// sliced mid-character.
func Segment(transcript string, start, end int) string {
	from := start
	for i := 0; i < SegmentRadius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(transcript[:from])
		from -= size
	}
	to := end
	for i := 0; i < SegmentRadius && to < len(transcript); i++ {
		_, size := utf8.DecodeRuneInString(transcript[to:])
		to += size
	}

	segment := transcript[from:to]
	if from > 0 {
		segment = "..." + segment
	}
	if to < len(transcript) {
		segment = segment + "..."
	}
	return segment
}
