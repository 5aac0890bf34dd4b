package feeds

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
)

// RegisterRoutes registers feed subscription routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("", ListFeeds(deps))
	group.POST("", SubscribeFeed(deps))
	group.DELETE("/:id", UnsubscribeFeed(deps))
}
