package feeds

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ListFeeds returns all subscriptions with their episode counts
// @Summary      List subscribed feeds
// @Tags         feeds
// @Produce      json
// @Success      200 {object} types.FeedsResponse
// @Router       /api/v1/feeds [get]
func ListFeeds(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		feeds, err := deps.FeedService.ListFeeds(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Failed to list feeds")
			return
		}
		c.JSON(200, types.FeedsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Feeds:        feeds,
			Count:        len(feeds),
		})
	}
}

// SubscribeFeed adds a feed subscription and kicks off its first poll
// @Summary      Subscribe to a feed
// @Tags         feeds
// @Accept       json
// @Produce      json
// @Param        feed body types.SubscribeFeedRequest true "Feed URL"
// @Success      201 {object} models.Feed
// @Failure      400 {object} types.ErrorResponse "Invalid URL"
// @Failure      409 {object} types.ErrorResponse "Already subscribed"
// @Router       /api/v1/feeds [post]
func SubscribeFeed(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SubscribeFeedRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		feed, err := deps.FeedService.Subscribe(c.Request.Context(), req.URL)
		if err != nil {
			types.SendError(c, err)
			return
		}

		// First poll runs immediately and imports with the initial-import cap
		payload := models.JobPayload{"feed_id": feed.ID, "initial_import": true}
		if _, err := deps.JobService.EnqueueUniqueJob(c.Request.Context(), models.TaskPollSingleFeed, payload, "feed_id"); err != nil {
			log.Printf("[ERROR] Failed to enqueue initial poll for feed %s: %v", feed.ID, err)
		}

		types.SendCreated(c, feed)
	}
}

// UnsubscribeFeed removes a subscription and everything under it
// @Summary      Unsubscribe from a feed
// @Tags         feeds
// @Produce      json
// @Param        id path string true "Feed ID"
// @Success      200 {object} types.BaseResponse
// @Failure      404 {object} types.ErrorResponse "Feed not found"
// @Router       /api/v1/feeds/{id} [delete]
func UnsubscribeFeed(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deps.FeedService.Unsubscribe(c.Request.Context(), id); err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotFound) {
				types.SendNotFound(c, "Feed not found")
				return
			}
			types.SendInternalError(c, "Failed to unsubscribe")
			return
		}
		c.JSON(200, types.BaseResponse{Status: types.StatusOK, Message: "Feed removed"})
	}
}
