package recorder

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"motion-notifier-go/internal/models"
)

// JPEGEncoder produces single-image evidence from the first appended frame
type JPEGEncoder struct {
	Quality int
}

// NewJPEGEncoder creates a JPEG encoder; quality outside 1..100 falls back to 90
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &JPEGEncoder{Quality: quality}
}

func (e *JPEGEncoder) MIMEType() string  { return "image/jpeg" }
func (e *JPEGEncoder) Extension() string { return ".jpg" }

func (e *JPEGEncoder) Open(path string, width, height int) (Sink, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	return &jpegSink{path: path, quality: e.Quality}, nil
}

type jpegSink struct {
	path    string
	quality int
	written bool
}

func (s *jpegSink) WriteFrame(frame *models.Frame) error {
	if s.written {
		return nil
	}
	if err := frame.Validate(); err != nil {
		return err
	}

	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := jpeg.Encode(file, bgrToRGBA(frame), &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	s.written = true
	return file.Sync()
}

func (s *jpegSink) Close() error {
	if !s.written {
		return fmt.Errorf("no frame written to %s", s.path)
	}
	return nil
}

func bgrToRGBA(frame *models.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i, j := 0, 0; j < len(frame.Data); i, j = i+4, j+3 {
		img.Pix[i] = frame.Data[j+2]
		img.Pix[i+1] = frame.Data[j+1]
		img.Pix[i+2] = frame.Data[j]
		img.Pix[i+3] = 0xFF
	}
	return img
}
