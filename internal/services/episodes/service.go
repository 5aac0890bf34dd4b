package episodes

import (
	"context"
	"log"

	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// allowedTransitions is the pipeline state machine. Failure recovery
// transitions (failed -> pending, failed -> analyzing) go through the
// dedicated Reset methods, not Transition.
var allowedTransitions = map[models.EpisodeStatus][]models.EpisodeStatus{
	models.EpisodeStatusPending:      {models.EpisodeStatusQueued, models.EpisodeStatusFailed},
	models.EpisodeStatusQueued:       {models.EpisodeStatusDownloading, models.EpisodeStatusFailed},
	models.EpisodeStatusDownloading:  {models.EpisodeStatusTranscribing, models.EpisodeStatusFailed},
	models.EpisodeStatusTranscribing: {models.EpisodeStatusAnalyzing, models.EpisodeStatusFailed},
	models.EpisodeStatusAnalyzing:    {models.EpisodeStatusCompleted, models.EpisodeStatusFailed},
}

func transitionAllowed(from, to models.EpisodeStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type service struct {
	repo Repository
}

// NewService creates a new episode service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) UpsertByGUID(ctx context.Context, episode *models.Episode) (*models.Episode, bool, error) {
	existing, err := s.repo.GetByGUID(ctx, episode.GUID)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrEpisodeNotFound {
		return nil, false, err
	}

	if episode.Status == "" {
		episode.Status = models.EpisodeStatusPending
	}
	if err := s.repo.Create(ctx, episode); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "creating episode")
	}
	return episode, true, nil
}

func (s *service) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	episode, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrEpisodeNotFound {
			return nil, apperrors.NotFound("episode", id)
		}
		return nil, err
	}
	return episode, nil
}

func (s *service) ListEpisodes(ctx context.Context, filter ListFilter) ([]models.Episode, int64, error) {
	return s.repo.List(ctx, filter)
}

// Transition moves the episode along the pipeline, rejecting edges the state
// machine does not allow.
func (s *service) Transition(ctx context.Context, id string, to models.EpisodeStatus) (*models.Episode, error) {
	episode, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}

	// Redelivered jobs re-run their stage from its own intermediate status;
	// a same-state transition is a no-op, not a conflict.
	if episode.Status == to {
		return episode, nil
	}

	if !transitionAllowed(episode.Status, to) {
		return nil, apperrors.Newf(apperrors.ErrCodeConflict,
			"episode %s cannot move from %s to %s", id, episode.Status, to)
	}

	episode.Status = to
	if err := s.repo.Update(ctx, episode); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "updating episode status")
	}
	return episode, nil
}

func (s *service) SetTranscript(ctx context.Context, id string, transcript string) error {
	episode, err := s.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	// Empty string is a legitimate transcript for a silent episode
	episode.TranscriptText = &transcript
	return s.repo.Update(ctx, episode)
}

// MarkFailed moves the episode to failed from any state and records a bounded
// error summary.
func (s *service) MarkFailed(ctx context.Context, id string, cause error) error {
	episode, err := s.GetEpisode(ctx, id)
	if err != nil {
		return err
	}

	episode.Status = models.EpisodeStatusFailed
	if cause != nil {
		msg := models.TruncateError(cause.Error())
		episode.ErrorMessage = &msg
	}
	if err := s.repo.Update(ctx, episode); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "marking episode failed")
	}
	log.Printf("[WARN] Episode %s failed: %v", id, cause)
	return nil
}

func (s *service) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.Transition(ctx, id, models.EpisodeStatusCompleted)
	return err
}

func (s *service) QueueRecentPending(ctx context.Context, feedID string, limit int) ([]models.Episode, error) {
	if limit <= 0 {
		return nil, nil
	}
	queued, err := s.repo.QueueTopRecent(ctx, feedID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "queueing episodes")
	}
	return queued, nil
}

// ResetForReprocess returns a failed episode to pending for a full pipeline
// rerun. Transcript and error are cleared; stale mentions are replaced when
// detection runs again.
func (s *service) ResetForReprocess(ctx context.Context, id string) (*models.Episode, error) {
	episode, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if episode.Status != models.EpisodeStatusFailed {
		return nil, apperrors.Newf(apperrors.ErrCodeConflict,
			"episode %s is %s, only failed episodes can be reprocessed", id, episode.Status)
	}

	episode.Status = models.EpisodeStatusPending
	episode.TranscriptText = nil
	episode.ErrorMessage = nil
	if err := s.repo.Update(ctx, episode); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "resetting episode")
	}
	return episode, nil
}

// ResetForEnrichmentRetry returns a failed episode to analyzing, skipping
// download and transcription. Requires a stored transcript.
func (s *service) ResetForEnrichmentRetry(ctx context.Context, id string) (*models.Episode, error) {
	episode, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if episode.Status != models.EpisodeStatusFailed {
		return nil, apperrors.Newf(apperrors.ErrCodeConflict,
			"episode %s is %s, only failed episodes can retry enrichment", id, episode.Status)
	}
	if episode.TranscriptText == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeConflict,
			"episode %s has no transcript, a full reprocess is required", id)
	}

	episode.Status = models.EpisodeStatusAnalyzing
	episode.ErrorMessage = nil
	if err := s.repo.Update(ctx, episode); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "resetting episode for enrichment")
	}
	return episode, nil
}

func (s *service) CountByStatus(ctx context.Context) (map[models.EpisodeStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}
