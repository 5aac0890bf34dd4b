package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/models"
)

const (
	topKeywordsLimit    = 10
	recentMentionsLimit = 10
)

// GetStats returns the dashboard rollup
// @Summary      Dashboard statistics
// @Description  Counts of feeds, episodes by status, keywords and mentions plus top keywords, sentiment breakdown and the latest mentions
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} types.DashboardResponse
// @Router       /api/v1/dashboard/stats [get]
func GetStats(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var feedCount, keywordCount int64
		if err := deps.DB.WithContext(ctx).Model(&models.Feed{}).Count(&feedCount).Error; err != nil {
			types.SendInternalError(c, "Failed to count feeds")
			return
		}
		if err := deps.DB.WithContext(ctx).Model(&models.Keyword{}).Count(&keywordCount).Error; err != nil {
			types.SendInternalError(c, "Failed to count keywords")
			return
		}

		byStatus, err := deps.EpisodeService.CountByStatus(ctx)
		if err != nil {
			types.SendInternalError(c, "Failed to count episodes")
			return
		}
		var episodeCount int64
		for _, n := range byStatus {
			episodeCount += n
		}

		mentionCount, err := deps.MentionService.CountTotal(ctx)
		if err != nil {
			types.SendInternalError(c, "Failed to count mentions")
			return
		}
		topKeywords, err := deps.MentionService.TopKeywords(ctx, topKeywordsLimit)
		if err != nil {
			types.SendInternalError(c, "Failed to rank keywords")
			return
		}
		sentiments, err := deps.MentionService.SentimentBreakdown(ctx)
		if err != nil {
			types.SendInternalError(c, "Failed to break down sentiments")
			return
		}
		recent, err := deps.MentionService.RecentMentions(ctx, recentMentionsLimit)
		if err != nil {
			types.SendInternalError(c, "Failed to list recent mentions")
			return
		}

		c.JSON(200, types.DashboardResponse{
			BaseResponse:     types.BaseResponse{Status: types.StatusOK},
			Feeds:            feedCount,
			Episodes:         episodeCount,
			EpisodesByStatus: byStatus,
			Keywords:         keywordCount,
			Mentions:         mentionCount,
			TopKeywords:      topKeywords,
			Sentiments:       sentiments,
			RecentMentions:   recent,
		})
	}
}
