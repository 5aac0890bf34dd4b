package episodes

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/models"
	episodesService "github.com/ateesdalejr/podlistener/internal/services/episodes"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ListByFeed returns a feed's episodes newest first with mention counts
// @Summary      List episodes of a feed
// @Tags         episodes
// @Produce      json
// @Param        feedID path string true "Feed ID"
// @Param        page query int false "Page number"
// @Param        limit query int false "Page size"
// @Success      200 {object} types.EpisodesResponse
// @Failure      404 {object} types.ErrorResponse "Feed not found"
// @Router       /api/v1/episodes/by-feed/{feedID} [get]
func ListByFeed(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		feedID := c.Param("feedID")
		ctx := c.Request.Context()

		if _, err := deps.FeedService.GetFeed(ctx, feedID); err != nil {
			types.SendNotFound(c, "Feed not found")
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		episodes, total, err := deps.EpisodeService.ListEpisodes(ctx, episodesService.ListFilter{
			FeedID: feedID,
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			types.SendInternalError(c, "Failed to list episodes")
			return
		}

		counts, err := deps.MentionService.MentionCountsByEpisode(ctx, feedID)
		if err != nil {
			types.SendInternalError(c, "Failed to count mentions")
			return
		}

		out := make([]types.EpisodeSummary, 0, len(episodes))
		for _, episode := range episodes {
			// The full transcript is a detail-view field
			episode.TranscriptText = nil
			out = append(out, types.EpisodeSummary{
				Episode:      episode,
				MentionCount: counts[episode.ID],
			})
		}

		c.JSON(200, types.EpisodesResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Episodes:     out,
			Count:        len(out),
			Total:        total,
		})
	}
}

// GetEpisode returns one episode including its transcript
// @Summary      Get episode detail
// @Tags         episodes
// @Produce      json
// @Param        id path string true "Episode ID"
// @Success      200 {object} models.Episode
// @Failure      404 {object} types.ErrorResponse "Episode not found"
// @Router       /api/v1/episodes/{id} [get]
func GetEpisode(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episode, err := deps.EpisodeService.GetEpisode(c.Request.Context(), c.Param("id"))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotFound) {
				types.SendNotFound(c, "Episode not found")
				return
			}
			types.SendInternalError(c, "Failed to get episode")
			return
		}
		c.JSON(200, episode)
	}
}

// Reprocess puts a failed episode back through the whole pipeline
// @Summary      Reprocess a failed episode
// @Tags         episodes
// @Produce      json
// @Param        id path string true "Episode ID"
// @Success      200 {object} models.Episode
// @Failure      404 {object} types.ErrorResponse "Episode not found"
// @Failure      409 {object} types.ErrorResponse "Episode is not failed"
// @Router       /api/v1/episodes/{id}/reprocess [post]
func Reprocess(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx := c.Request.Context()

		episode, err := deps.EpisodeService.ResetForReprocess(ctx, id)
		if err != nil {
			types.SendError(c, err)
			return
		}

		payload := models.JobPayload{"episode_id": id}
		if _, err := deps.JobService.EnqueueUniqueJob(ctx, models.TaskProcessEpisode, payload, "episode_id"); err != nil {
			log.Printf("[ERROR] Failed to enqueue reprocess for episode %s: %v", id, err)
			types.SendInternalError(c, "Failed to enqueue reprocess")
			return
		}

		c.JSON(200, episode)
	}
}

// RetryEnrichment re-runs detection and enrichment on the saved transcript
// @Summary      Retry enrichment for a failed episode
// @Description  Skips download and transcription, re-running keyword detection on the stored transcript
// @Tags         episodes
// @Produce      json
// @Param        id path string true "Episode ID"
// @Success      200 {object} models.Episode
// @Failure      404 {object} types.ErrorResponse "Episode not found"
// @Failure      409 {object} types.ErrorResponse "Episode has no transcript"
// @Router       /api/v1/episodes/{id}/retry-enrichment [post]
func RetryEnrichment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx := c.Request.Context()

		episode, err := deps.EpisodeService.ResetForEnrichmentRetry(ctx, id)
		if err != nil {
			types.SendError(c, err)
			return
		}

		payload := models.JobPayload{"episode_id": id, "transcription_done": true}
		if _, err := deps.JobService.EnqueueUniqueJob(ctx, models.TaskDetectEpisodeKeywords, payload, "episode_id"); err != nil {
			log.Printf("[ERROR] Failed to enqueue enrichment retry for episode %s: %v", id, err)
			types.SendInternalError(c, "Failed to enqueue enrichment retry")
			return
		}

		c.JSON(200, episode)
	}
}
