package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"motion-notifier-go/internal/models"
)

// Config holds the video source settings
type Config struct {
	CameraID string
	Device   string // device index, stream URL or file path
	Width    int
	Height   int
	FPS      int
}

// Source reads BGR24 frames from an OpenCV VideoCapture at a fixed rate
type Source struct {
	cfg    Config
	isFile bool

	mu      sync.Mutex
	cap     *gocv.VideoCapture
	img     gocv.Mat
	resized gocv.Mat
	gray    gocv.Mat
	ticker  *time.Ticker
	frameID int64
}

// Open starts the capture device
func Open(cfg Config) (*Source, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = 10
	}

	log.Info().
		Str("camera_id", cfg.CameraID).
		Str("device", cfg.Device).
		Msg("Opening video capture")

	var (
		vc     *gocv.VideoCapture
		err    error
		isFile bool
	)
	if idx, convErr := strconv.Atoi(cfg.Device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		if info, statErr := os.Stat(cfg.Device); statErr == nil && info.Mode().IsRegular() {
			isFile = true
		}
		vc, err = gocv.OpenVideoCapture(cfg.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %v: %w", cfg.Device, err, models.ErrCaptureFailure)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source %s is not opened: %w", cfg.Device, models.ErrCaptureFailure)
	}

	vc.Set(gocv.VideoCaptureBufferSize, 1)
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	log.Info().
		Str("camera_id", cfg.CameraID).
		Float64("actual_fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Int("target_fps", cfg.FPS).
		Msg("VideoCapture opened successfully")

	return &Source{
		cfg:     cfg,
		isFile:  isFile,
		cap:     vc,
		img:     gocv.NewMat(),
		resized: gocv.NewMat(),
		gray:    gocv.NewMat(),
		ticker:  time.NewTicker(time.Second / time.Duration(cfg.FPS)),
	}, nil
}

// NextFrame blocks until the next tick and returns a freshly read frame. A
// failed read is a capture failure, or the end of stream for file sources.
func (s *Source) NextFrame(ctx context.Context) (*models.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil, fmt.Errorf("video source closed: %w", models.ErrCaptureFailure)
	}

	if ok := s.cap.Read(&s.img); !ok || s.img.Empty() {
		if s.isFile {
			return nil, models.ErrEndOfStream
		}
		return nil, fmt.Errorf("failed to read frame from %s: %w", s.cfg.Device, models.ErrCaptureFailure)
	}

	src := s.img
	width, height := s.img.Cols(), s.img.Rows()
	if s.cfg.Width > 0 && s.cfg.Height > 0 && (width != s.cfg.Width || height != s.cfg.Height) {
		gocv.Resize(s.img, &s.resized, image.Pt(s.cfg.Width, s.cfg.Height), 0, 0, gocv.InterpolationLinear)
		src = s.resized
		width, height = s.cfg.Width, s.cfg.Height
	}

	// luminance for the background model and scorer
	gocv.CvtColor(src, &s.gray, gocv.ColorBGRToGray)

	s.frameID++
	return &models.Frame{
		CameraID:  s.cfg.CameraID,
		Data:      src.ToBytes(),
		Gray:      s.gray.ToBytes(),
		Timestamp: time.Now(),
		FrameID:   s.frameID,
		Width:     width,
		Height:    height,
	}, nil
}

// Close releases the capture device
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	s.ticker.Stop()
	s.img.Close()
	s.resized.Close()
	s.gray.Close()
	err := s.cap.Close()
	s.cap = nil

	log.Info().Str("camera_id", s.cfg.CameraID).Int64("frames", s.frameID).Msg("Video capture closed")
	return err
}
