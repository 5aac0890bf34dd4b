package mentions

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	mentionsService "github.com/ateesdalejr/podlistener/internal/services/mentions"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ListMentions returns enriched mentions, filterable and paginated
// @Summary      List mentions
// @Tags         mentions
// @Produce      json
// @Param        feed_id query string false "Filter by feed"
// @Param        keyword_id query string false "Filter by keyword"
// @Param        sentiment query string false "Filter by sentiment"
// @Param        page query int false "Page number"
// @Param        limit query int false "Page size (max 100)"
// @Success      200 {object} types.MentionsResponse
// @Router       /api/v1/mentions [get]
func ListMentions(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		filter := mentionsService.ListFilter{
			EpisodeID: c.Query("episode_id"),
			KeywordID: c.Query("keyword_id"),
			FeedID:    c.Query("feed_id"),
			Sentiment: c.Query("sentiment"),
			Page:      page,
			Limit:     limit,
		}
		if v, ok := boolQuery(c, "is_buying_signal"); ok {
			filter.IsBuyingSignal = &v
		}
		if v, ok := boolQuery(c, "is_pain_point"); ok {
			filter.IsPainPoint = &v
		}

		mentions, total, err := deps.MentionService.ListMentionsDetailed(c.Request.Context(), filter)
		if err != nil {
			types.SendInternalError(c, "Failed to list mentions")
			return
		}

		c.JSON(200, types.MentionsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Mentions:     mentions,
			Count:        len(mentions),
			Total:        total,
		})
	}
}

// GetMention returns one mention with its raw LLM response
// @Summary      Get mention detail
// @Tags         mentions
// @Produce      json
// @Param        id path string true "Mention ID"
// @Success      200 {object} models.Mention
// @Failure      404 {object} types.ErrorResponse "Mention not found"
// @Router       /api/v1/mentions/{id} [get]
func GetMention(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		mention, err := deps.MentionService.GetMention(c.Request.Context(), c.Param("id"))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotFound) {
				types.SendNotFound(c, "Mention not found")
				return
			}
			types.SendInternalError(c, "Failed to get mention")
			return
		}
		c.JSON(200, mention)
	}
}

func boolQuery(c *gin.Context, name string) (bool, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
