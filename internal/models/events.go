package models

import "time"

// DetectionEventType identifies a pipeline lifecycle event
type DetectionEventType string

const (
	EventBackgroundReset   DetectionEventType = "background_reset"
	EventSessionStarted    DetectionEventType = "session_started"
	EventSessionCompleted  DetectionEventType = "session_completed"
	EventSessionFailed     DetectionEventType = "session_failed"
	EventSessionFinalized  DetectionEventType = "session_finalized" // closed on stop, not dispatched
	EventDispatchSucceeded DetectionEventType = "dispatch_succeeded"
	EventDispatchFailed    DetectionEventType = "dispatch_failed"
	EventMotionOnCooldown  DetectionEventType = "motion_on_cooldown"
)

// DetectionEvent is published on the message bus for every lifecycle change
type DetectionEvent struct {
	ID        string              `json:"id"`
	Type      DetectionEventType  `json:"type"`
	CameraID  string              `json:"camera_id"`
	Timestamp time.Time           `json:"timestamp"`
	Score     float64             `json:"score,omitempty"`
	Recording *CompletedRecording `json:"recording,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// ControlCommand is a remote instruction for the pipeline
type ControlCommand struct {
	Command string `json:"command"`
}

const (
	CommandResetBackground = "reset_background"
)

// DeliveryReport is published by the notification bridge after forwarding a file
type DeliveryReport struct {
	Filename  string    `json:"filename"`
	MIMEType  string    `json:"mime_type"`
	Size      int       `json:"size"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
