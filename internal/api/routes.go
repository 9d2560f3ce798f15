package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(gin.Logger())

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		communities := v1.Group("/communities/:community")
		{
			communities.GET("/stats", handler.GetCommunityStats)
			communities.GET("/participants", handler.GetCommunityParticipants)
		}

		v1.GET("/overlaps/:a/:b/latest", handler.GetLatestOverlap)

		outreach := v1.Group("/outreach")
		{
			outreach.GET("/latest", handler.GetLatestOutreachRun)
			outreach.GET("/:id", handler.GetOutreachRun)
		}
	}

	return router
}
