package http

import (
	"time"

	"swingref/presentation/http/handler"
	"swingref/presentation/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the session HTTP surface: session lifecycle, config
// patching and profiles, reference-state reads, tracking, and
// leg/lineage lookups, plus a health check and a Prometheus /metrics
// mount.
func NewRouter(sessionHandler *handler.SessionHandler, profileHandler *handler.ProfileHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	router.Use(middleware.CorsMiddleware())
	router.Use(middleware.LoggerWithFormatter())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := router.Group("/sessions")
	{
		sessions.POST("", sessionHandler.Init)
		sessions.POST("/:id/advance", sessionHandler.Advance)
		sessions.POST("/:id/reset", sessionHandler.Reset)
		sessions.PATCH("/:id/config/detector", sessionHandler.UpdateDetectorConfig)
		sessions.PATCH("/:id/config/reference", sessionHandler.UpdateReferenceConfig)
		sessions.GET("/:id/reference-state", sessionHandler.GetReferenceState)
		sessions.POST("/:id/track/:legID", sessionHandler.Track)
		sessions.DELETE("/:id/track/:legID", sessionHandler.Untrack)
		sessions.GET("/:id/legs", sessionHandler.GetActiveLegs)
		sessions.GET("/:id/legs/:legID/lineage", sessionHandler.GetLineage)
	}

	profiles := router.Group("/profiles")
	{
		profiles.POST("", profileHandler.Create)
		profiles.GET("", profileHandler.List)
		profiles.DELETE("/:profileID", profileHandler.Delete)
	}

	return router
}
