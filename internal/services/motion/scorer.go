package motion

import (
	"fmt"
	"time"

	"motion-notifier-go/internal/models"
)

const (
	// DefaultPixelThreshold is the per-pixel intensity delta that marks a pixel as changed
	DefaultPixelThreshold = 20
	// DefaultMotionThreshold is the changed-area fraction above which motion is detected
	DefaultMotionThreshold = 0.05

	deltaMax = 255
)

// Scorer computes the fraction of the frame that differs from the background
type Scorer struct {
	pixelThreshold  uint8
	motionThreshold float64
}

// NewScorer creates a scorer; zero values fall back to the defaults
func NewScorer(pixelThreshold int, motionThreshold float64) *Scorer {
	if pixelThreshold <= 0 || pixelThreshold > 255 {
		pixelThreshold = DefaultPixelThreshold
	}
	if motionThreshold <= 0 || motionThreshold >= 1 {
		motionThreshold = DefaultMotionThreshold
	}
	return &Scorer{
		pixelThreshold:  uint8(pixelThreshold),
		motionThreshold: motionThreshold,
	}
}

// Score compares the luminance of frame with the background estimate
func (s *Scorer) Score(frame *models.Frame, background []uint8) (models.MotionReading, error) {
	gray, err := frame.Luminance()
	if err != nil {
		return models.MotionReading{}, err
	}
	return s.ScoreLuma(gray, background, frame.Timestamp)
}

// ScoreLuma scores an already converted luminance buffer
func (s *Scorer) ScoreLuma(gray, background []uint8, ts time.Time) (models.MotionReading, error) {
	if len(gray) != len(background) {
		return models.MotionReading{}, fmt.Errorf("frame has %d pixels, background %d: %w",
			len(gray), len(background), models.ErrDimensionMismatch)
	}
	if len(gray) == 0 {
		return models.MotionReading{}, fmt.Errorf("empty image: %w", models.ErrDimensionMismatch)
	}

	// binarize to 0/deltaMax and sum, as threshold(absdiff) does
	var sum int64
	for i, v := range gray {
		d := int(v) - int(background[i])
		if d < 0 {
			d = -d
		}
		if d > int(s.pixelThreshold) {
			sum += deltaMax
		}
	}

	score := float64(sum) / (float64(len(gray)) * deltaMax)
	return models.MotionReading{Score: score, Timestamp: ts}, nil
}

// Detected reports whether a reading counts as motion
func (s *Scorer) Detected(r models.MotionReading) bool {
	return r.Score > s.motionThreshold
}

// Threshold returns the motion threshold
func (s *Scorer) Threshold() float64 {
	return s.motionThreshold
}
