package workers

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/detection"
)

// Payload keys shared by the pipeline tasks.
const (
	keyFeedID            = "feed_id"
	keyEpisodeID         = "episode_id"
	keyInitialImport     = "initial_import"
	keyTranscriptionDone = "transcription_done"
	keyMatches           = "matches"
	keyStartIndex        = "start_index"
)

// AudioPath is where the download stage stages an episode's audio and where
// the later stages expect to find it.
func AudioPath(audioDir, episodeID string) string {
	return filepath.Join(audioDir, episodeID+".mp3")
}

// encodeMatches converts detector output into a JSON-safe payload value.
func encodeMatches(matches []detection.Match) []interface{} {
	out := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]interface{}{
			"keyword_id":   m.KeywordID,
			"matched_text": m.MatchedText,
			"segment":      m.Segment,
		})
	}
	return out
}

// decodeMatches reverses encodeMatches after a round trip through the jobs
// table's JSON column.
func decodeMatches(job *models.Job) ([]detection.Match, error) {
	raw, ok := job.Payload[keyMatches]
	if !ok {
		return nil, fmt.Errorf("payload has no matches")
	}

	// Round-trip through JSON rather than walking interface{} shapes by hand
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding matches: %w", err)
	}
	var matches []detection.Match
	if err := json.Unmarshal(encoded, &matches); err != nil {
		return nil, fmt.Errorf("decoding matches: %w", err)
	}
	return matches, nil
}
