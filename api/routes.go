package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ateesdalejr/podlistener/api/dashboard"
	"github.com/ateesdalejr/podlistener/api/episodes"
	"github.com/ateesdalejr/podlistener/api/feeds"
	"github.com/ateesdalejr/podlistener/api/health"
	"github.com/ateesdalejr/podlistener/api/keywords"
	"github.com/ateesdalejr/podlistener/api/mentions"
	"github.com/ateesdalejr/podlistener/api/settings"
	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/api/version"
	_ "github.com/ateesdalejr/podlistener/docs/swagger"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		return fmt.Errorf("handler dependencies are not set")
	}

	// Public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Swagger documentation
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")

	// Read-mostly browse routes share a general limit (10 req/s, burst of 20)
	generalLimit := func() gin.HandlerFunc {
		return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20)
	}

	feedGroup := v1.Group("/feeds")
	feedGroup.Use(generalLimit())
	feeds.RegisterRoutes(feedGroup, deps)

	episodeGroup := v1.Group("/episodes")
	episodeGroup.Use(generalLimit())
	episodes.RegisterRoutes(episodeGroup, deps)

	keywordGroup := v1.Group("/keywords")
	keywordGroup.Use(generalLimit())
	keywords.RegisterRoutes(keywordGroup, deps)

	mentionGroup := v1.Group("/mentions")
	mentionGroup.Use(generalLimit())
	mentions.RegisterRoutes(mentionGroup, deps)

	dashboardGroup := v1.Group("/dashboard")
	dashboardGroup.Use(generalLimit())
	dashboard.RegisterRoutes(dashboardGroup, deps)

	// Settings writes are rare; keep a tight limit (2 req/s, burst of 5)
	settingsGroup := v1.Group("/settings")
	settingsGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 2, 5))
	settings.RegisterRoutes(settingsGroup, deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
