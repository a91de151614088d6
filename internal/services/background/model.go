package background

import (
	"fmt"
	"math"
	"sync"

	"motion-notifier-go/internal/models"
)

// DefaultWeight is the smoothing weight applied to each new frame
const DefaultWeight = 0.5

// Model is a running single-channel estimate of the static scene
type Model struct {
	mu       sync.RWMutex
	weight   float64
	estimate []float64
	width    int
	height   int
}

// NewModel creates an uninitialized model with the given smoothing weight
func NewModel(weight float64) *Model {
	if weight <= 0 || weight > 1 {
		weight = DefaultWeight
	}
	return &Model{weight: weight}
}

// Initialize replaces the estimate with the luminance of frame
func (m *Model) Initialize(frame *models.Frame) error {
	gray, err := frame.Luminance()
	if err != nil {
		return err
	}

	estimate := make([]float64, len(gray))
	for i, v := range gray {
		estimate[i] = float64(v)
	}

	m.mu.Lock()
	m.estimate = estimate
	m.width = frame.Width
	m.height = frame.Height
	m.mu.Unlock()
	return nil
}

// Update blends the luminance of frame into the estimate:
// estimate = w*lum + (1-w)*estimate
func (m *Model) Update(frame *models.Frame) error {
	gray, err := frame.Luminance()
	if err != nil {
		return err
	}
	return m.UpdateLuma(gray, frame.Width, frame.Height)
}

// UpdateLuma is Update for an already converted luminance buffer
func (m *Model) UpdateLuma(gray []uint8, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.estimate == nil {
		return models.ErrUninitializedModel
	}
	if width != m.width || height != m.height || len(gray) != len(m.estimate) {
		return fmt.Errorf("update %dx%d against %dx%d estimate: %w",
			width, height, m.width, m.height, models.ErrDimensionMismatch)
	}

	w := m.weight
	for i, v := range gray {
		m.estimate[i] = w*float64(v) + (1-w)*m.estimate[i]
	}
	return nil
}

// CurrentEstimate returns the estimate rounded and saturated to 8 bits
func (m *Model) CurrentEstimate() ([]uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.estimate == nil {
		return nil, models.ErrUninitializedModel
	}

	out := make([]uint8, len(m.estimate))
	for i, v := range m.estimate {
		out[i] = saturate(v)
	}
	return out, nil
}

// Initialized reports whether Initialize has been called
func (m *Model) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.estimate != nil
}

// Size returns the resolution the model was initialized with
func (m *Model) Size() (width, height int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.width, m.height
}

// Weight returns the smoothing weight
func (m *Model) Weight() float64 {
	return m.weight
}

func saturate(v float64) uint8 {
	r := math.RoundToEven(v)
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	default:
		return uint8(r)
	}
}
