package logging

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/config"
)

// lineWriter hands every complete log line to the Logdy UI
type lineWriter struct {
	ui logdy.Logdy
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		w.ui.LogString(string(line))
	}
	return len(p), nil
}

// StartLogdy serves the Logdy web UI and returns a writer to tee logs into it
// together with the UI address
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	if cfg.LogdyPort <= 0 || cfg.LogdyPort > 65535 {
		return nil, "", fmt.Errorf("invalid LOGDY_PORT %d", cfg.LogdyPort)
	}

	port := strconv.Itoa(cfg.LogdyPort)
	ui := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: port,
	}, nil)

	addr := "http://" + net.JoinHostPort(cfg.LogdyHost, port)
	log.Info().Str("url", addr).Str("camera_id", cfg.CameraID).Msg("Log viewer available")
	return &lineWriter{ui: ui}, addr, nil
}
