package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return WithCamera(log.With().Str("service", service).Logger(), cfg.CameraID)
}

func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Logger()
}
