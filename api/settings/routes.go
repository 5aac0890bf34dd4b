package settings

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
)

// RegisterRoutes registers settings routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/transcription", GetTranscriptionSettings(deps))
	group.PUT("/transcription", UpdateTranscriptionSettings(deps))
}
