package keywords

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
)

// RegisterRoutes registers keyword routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("", ListKeywords(deps))
	group.POST("", CreateKeyword(deps))
	group.PUT("/:id", UpdateKeyword(deps))
	group.DELETE("/:id", DeleteKeyword(deps))
}
