package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
)

// RegisterRoutes registers dashboard routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/stats", GetStats(deps))
}
