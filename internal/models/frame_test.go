package models

import (
	"errors"
	"testing"
)

func TestLuminanceFromBGR(t *testing.T) {
	tests := []struct {
		name    string
		b, g, r byte
		want    uint8
	}{
		{"black", 0, 0, 0, 0},
		{"white", 255, 255, 255, 255},
		{"blue", 255, 0, 0, 29},
		{"green", 0, 255, 0, 150},
		{"red", 0, 0, 255, 76},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frame{Data: []byte{tt.b, tt.g, tt.r}, Width: 1, Height: 1}
			gray, err := f.Luminance()
			if err != nil {
				t.Fatalf("Luminance failed: %v", err)
			}
			if gray[0] != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, gray[0])
			}
		})
	}
}

func TestLuminancePrefersGrayView(t *testing.T) {
	f := &Frame{
		Data:   make([]byte, 2*2*3),
		Gray:   []byte{1, 2, 3, 4},
		Width:  2,
		Height: 2,
	}
	gray, err := f.Luminance()
	if err != nil {
		t.Fatalf("Luminance failed: %v", err)
	}
	for i, v := range gray {
		if v != byte(i+1) {
			t.Fatalf("Pixel %d: expected gray view value %d, got %d", i, i+1, v)
		}
	}

	f.Gray = []byte{1, 2}
	if _, err := f.Luminance(); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch for short gray view, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
		ok    bool
	}{
		{"nil", nil, false},
		{"zero size", &Frame{}, false},
		{"short buffer", &Frame{Data: make([]byte, 5), Width: 2, Height: 1}, false},
		{"valid", &Frame{Data: make([]byte, 6), Width: 2, Height: 1}, true},
	}
	for _, tt := range tests {
		err := tt.frame.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("%s: expected ErrDimensionMismatch, got %v", tt.name, err)
		}
	}
}
