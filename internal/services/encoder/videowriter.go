package encoder

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"motion-notifier-go/internal/models"
	"motion-notifier-go/internal/services/recorder"
)

// VideoWriterEncoder writes clips through OpenCV's VideoWriter
type VideoWriterEncoder struct {
	Codec string
	FPS   float64
}

// NewVideoWriterEncoder creates an encoder for the given FourCC; an empty
// codec selects mp4v
func NewVideoWriterEncoder(codec string, fps int) *VideoWriterEncoder {
	if codec == "" {
		codec = "mp4v"
	}
	if fps <= 0 {
		fps = 10
	}
	return &VideoWriterEncoder{Codec: codec, FPS: float64(fps)}
}

func (e *VideoWriterEncoder) MIMEType() string {
	if e.isAVI() {
		return "video/x-msvideo"
	}
	return "video/mp4"
}

func (e *VideoWriterEncoder) Extension() string {
	if e.isAVI() {
		return ".avi"
	}
	return ".mp4"
}

func (e *VideoWriterEncoder) isAVI() bool {
	switch strings.ToUpper(e.Codec) {
	case "MJPG", "XVID", "DIVX":
		return true
	default:
		return false
	}
}

func (e *VideoWriterEncoder) Open(path string, width, height int) (recorder.Sink, error) {
	writer, err := gocv.VideoWriterFile(path, e.Codec, e.FPS, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer for %s with codec %s is not opened", path, e.Codec)
	}

	log.Debug().
		Str("path", path).
		Str("codec", e.Codec).
		Float64("fps", e.FPS).
		Int("width", width).
		Int("height", height).
		Msg("Video writer opened")

	return &videoWriterSink{writer: writer, width: width, height: height}, nil
}

type videoWriterSink struct {
	writer *gocv.VideoWriter
	width  int
	height int
}

func (s *videoWriterSink) WriteFrame(frame *models.Frame) error {
	if frame.Width != s.width || frame.Height != s.height {
		return fmt.Errorf("frame %dx%d in %dx%d clip: %w",
			frame.Width, frame.Height, s.width, s.height, models.ErrDimensionMismatch)
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer mat.Close()

	return s.writer.Write(mat)
}

func (s *videoWriterSink) Close() error {
	return s.writer.Close()
}
