package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Info)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/status", s.pipelineHandler.Status)

	background := s.router.Group("/background")
	{
		background.POST("/reset", s.pipelineHandler.ResetBackground)
	}

	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Motion Notifier Control API",
			"version":     s.config.Version,
			"description": "Control plane for the motion detection pipeline",
			"endpoints": gin.H{
				"health":           "/health",
				"status":           "/status",
				"background_reset": "/background/reset",
			},
			"camera_id": s.config.CameraID,
		})
	})
}
