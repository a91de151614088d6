package recorder

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/models"
)

// FFmpegEncoder writes clips by piping raw BGR24 frames into an ffmpeg process
type FFmpegEncoder struct {
	Binary string
	FPS    int
}

// NewFFmpegEncoder creates an encoder that produces H.264 MP4 clips
func NewFFmpegEncoder(fps int) *FFmpegEncoder {
	if fps <= 0 {
		fps = 10
	}
	return &FFmpegEncoder{Binary: "ffmpeg", FPS: fps}
}

func (e *FFmpegEncoder) MIMEType() string  { return "video/mp4" }
func (e *FFmpegEncoder) Extension() string { return ".mp4" }

// Args returns the ffmpeg command line used for a clip
func (e *FFmpegEncoder) Args(path string, width, height int) []string {
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "bgr24", // OpenCV default format
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(e.FPS),
		"-i", "-", // Read from stdin
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", "mp4",
		"-loglevel", "warning",
		"-y",
		path,
	}
}

func (e *FFmpegEncoder) Open(path string, width, height int) (Sink, error) {
	cmd := exec.Command(e.Binary, e.Args(path, width, height)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	log.Debug().
		Str("path", path).
		Int("width", width).
		Int("height", height).
		Int("fps", e.FPS).
		Msg("FFmpeg process started for clip recording")

	return &ffmpegSink{
		cmd:       cmd,
		stdin:     stdin,
		frameSize: width * height * 3,
	}, nil
}

type ffmpegSink struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	frameSize int
}

func (s *ffmpegSink) WriteFrame(frame *models.Frame) error {
	if len(frame.Data) != s.frameSize {
		return fmt.Errorf("frame has %d bytes, clip expects %d: %w",
			len(frame.Data), s.frameSize, models.ErrDimensionMismatch)
	}
	if s.cmd.ProcessState != nil && s.cmd.ProcessState.Exited() {
		return fmt.Errorf("FFmpeg process has exited")
	}
	if _, err := s.stdin.Write(frame.Data); err != nil {
		return fmt.Errorf("failed to write frame data to FFmpeg: %w", err)
	}
	return nil
}

// Close ends the input stream and waits for ffmpeg to finish the container
func (s *ffmpegSink) Close() error {
	if err := s.stdin.Close(); err != nil {
		log.Debug().Err(err).Msg("FFmpeg stdin already closed")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("FFmpeg exited with error: %w", err)
		}
		return nil
	case <-time.After(10 * time.Second):
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			log.Warn().Err(err).Msg("Failed to send interrupt to FFmpeg")
		}
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.cmd.Process.Kill()
			log.Warn().Msg("Force killed FFmpeg process")
		}
		return fmt.Errorf("FFmpeg did not finish the clip in time")
	}
}
