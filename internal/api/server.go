package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/api/handlers"
	"motion-notifier-go/internal/config"
)

// Server is the detector's HTTP control plane
type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler   *handlers.HealthHandler
	pipelineHandler *handlers.PipelineHandler
}

func NewServer(cfg *config.Config, pipeline handlers.PipelineControl) *Server {
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		config:          cfg,
		router:          gin.New(),
		healthHandler:   handlers.NewHealthHandler(cfg.CameraID, cfg.Version, pipeline),
		pipelineHandler: handlers.NewPipelineHandler(pipeline),
	}
}

func (s *Server) Setup() *Server {
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.ControlHost, s.config.ControlPort),
		Handler: s.router,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting control plane API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping control plane API")
	return s.server.Shutdown(ctx)
}
