package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/config"
)

// Init installs the console logger used before configuration is loaded
func Init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// Configure applies the configured level and tees output to Logdy when enabled
func Configure(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.LogdyEnabled {
		return
	}
	w, _, err := StartLogdy(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start Logdy, continuing with console logging")
		return
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(io.MultiWriter(console, w))
}
