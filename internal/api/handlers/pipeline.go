package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motion-notifier-go/internal/logging"
)

type PipelineHandler struct {
	pipeline PipelineControl
}

func NewPipelineHandler(p PipelineControl) *PipelineHandler {
	return &PipelineHandler{pipeline: p}
}

type ResetResponse struct {
	Status  string `json:"status" example:"accepted"`
	Message string `json:"message"`
}

// Status godoc
// @Summary Pipeline status
// @Description Snapshot of the controller state, last motion score, cooldown and counters
// @Tags pipeline
// @Produce json
// @Success 200 {object} pipeline.Status
// @Router /status [get]
func (h *PipelineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Status())
}

// ResetBackground godoc
// @Summary Re-baseline the background model
// @Description Queues a background reset applied on the next frame
// @Tags pipeline
// @Produce json
// @Success 202 {object} ResetResponse
// @Router /background/reset [post]
func (h *PipelineHandler) ResetBackground(c *gin.Context) {
	h.pipeline.ResetBackground()
	logging.Info(c).Msg("Background reset queued via API")

	c.JSON(http.StatusAccepted, ResetResponse{
		Status:  "accepted",
		Message: "Background will be re-initialized from the next frame",
	})
}
