package models

import (
	"fmt"
	"time"
)

// Frame represents a single BGR24 frame delivered by the video source
type Frame struct {
	CameraID  string
	Data      []byte // BGR24, row-major, Width*Height*3 bytes
	Gray      []byte // optional luminance view, Width*Height bytes
	Timestamp time.Time
	FrameID   int64
	Width     int
	Height    int
}

// PixelCount returns the number of pixels in the frame
func (f *Frame) PixelCount() int {
	return f.Width * f.Height
}

// Validate checks that the pixel buffer matches the declared dimensions
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("nil frame: %w", ErrDimensionMismatch)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame %dx%d: %w", f.Width, f.Height, ErrDimensionMismatch)
	}
	if len(f.Data) != f.Width*f.Height*3 {
		return fmt.Errorf("frame %dx%d has %d bytes, want %d: %w",
			f.Width, f.Height, len(f.Data), f.Width*f.Height*3, ErrDimensionMismatch)
	}
	return nil
}

// Luminance returns the single-channel view of the frame. A Gray view set by
// the capture source is used as is; otherwise it is derived with the BT.601
// weights OpenCV applies for BGR2GRAY.
func (f *Frame) Luminance() ([]uint8, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Gray != nil {
		if len(f.Gray) != f.PixelCount() {
			return nil, fmt.Errorf("gray view has %d bytes, want %d: %w",
				len(f.Gray), f.PixelCount(), ErrDimensionMismatch)
		}
		return f.Gray, nil
	}
	return BGRToGray(f.Data, f.PixelCount()), nil
}

// BGRToGray converts n packed BGR24 pixels to luminance
func BGRToGray(bgr []byte, n int) []uint8 {
	gray := make([]uint8, n)
	for i, j := 0, 0; i < n; i, j = i+1, j+3 {
		b := uint32(bgr[j])
		g := uint32(bgr[j+1])
		r := uint32(bgr[j+2])
		// fixed point 14-bit, same coefficients as cv::cvtColor
		gray[i] = uint8((b*1868 + g*9617 + r*4899 + 8192) >> 14)
	}
	return gray
}

// MotionReading is the motion score computed for one frame
type MotionReading struct {
	Score     float64
	Timestamp time.Time
}

// EvidenceKind selects what a recording session captures
type EvidenceKind string

const (
	EvidenceImage EvidenceKind = "image"
	EvidenceClip  EvidenceKind = "clip"
)

// String returns the string representation of EvidenceKind
func (k EvidenceKind) String() string {
	return string(k)
}

// IsValid checks if the evidence kind is valid
func (k EvidenceKind) IsValid() bool {
	switch k {
	case EvidenceImage, EvidenceClip:
		return true
	default:
		return false
	}
}

// CompletedRecording describes a finalized evidence artifact ready for dispatch
type CompletedRecording struct {
	SessionID  string        `json:"session_id"`
	CameraID   string        `json:"camera_id"`
	Kind       EvidenceKind  `json:"kind"`
	Path       string        `json:"path"`
	Filename   string        `json:"filename"`
	MIMEType   string        `json:"mime_type"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	FrameCount int64         `json:"frame_count"`
	FileSize   int64         `json:"file_size"`
}
