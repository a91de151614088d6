package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motion-notifier-go/internal/services/pipeline"
)

// PipelineControl is the part of the pipeline controller exposed over HTTP
type PipelineControl interface {
	Status() pipeline.Status
	ResetBackground()
}

type HealthHandler struct {
	CameraID string
	Version  string
	pipeline PipelineControl
}

func NewHealthHandler(cameraID, version string, p PipelineControl) *HealthHandler {
	return &HealthHandler{CameraID: cameraID, Version: version, pipeline: p}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	CameraID string `json:"camera_id" example:"cam-0"`
	Running  bool   `json:"running"`
}

type InfoResponse struct {
	CameraID     string   `json:"camera_id" example:"cam-0"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports healthy while the motion pipeline loop is running
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	running := h.pipeline.Status().Running
	resp := HealthResponse{
		Status:   "healthy",
		CameraID: h.CameraID,
		Running:  running,
	}
	if !running {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Info godoc
// @Summary Detector information
// @Tags health
// @Produce json
// @Success 200 {object} InfoResponse
// @Router / [get]
func (h *HealthHandler) Info(c *gin.Context) {
	status := "stopped"
	if h.pipeline.Status().Running {
		status = "running"
	}
	c.JSON(http.StatusOK, InfoResponse{
		CameraID: h.CameraID,
		Status:   status,
		Version:  h.Version,
		Capabilities: []string{
			"motion_detection",
			"evidence_recording",
			"notification_dispatch",
		},
	})
}
