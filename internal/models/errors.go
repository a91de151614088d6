package models

import "errors"

var (
	// ErrUninitializedModel is returned when the background model is used before Initialize
	ErrUninitializedModel = errors.New("background model not initialized")

	// ErrDimensionMismatch is returned when two images do not share a shape
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCaptureFailure is returned when the video source cannot deliver a frame
	ErrCaptureFailure = errors.New("capture failure")

	// ErrEndOfStream is returned by a frame source that has no more frames
	ErrEndOfStream = errors.New("end of stream")

	// ErrSinkWrite is returned when a recording sink cannot accept a frame
	ErrSinkWrite = errors.New("sink write failure")

	// ErrDispatch is returned when the notification channel does not confirm delivery
	ErrDispatch = errors.New("dispatch failure")

	// ErrSessionAlreadyActive means the at-most-one recording invariant was about to break
	ErrSessionAlreadyActive = errors.New("recording session already active")
)
