package episodes

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
)

// RegisterRoutes registers episode routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/by-feed/:feedID", ListByFeed(deps))
	group.GET("/:id", GetEpisode(deps))
	group.POST("/:id/reprocess", Reprocess(deps))
	group.POST("/:id/retry-enrichment", RetryEnrichment(deps))
}
