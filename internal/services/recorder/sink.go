package recorder

import (
	"motion-notifier-go/internal/models"
)

// Sink receives the frames of one recording session
type Sink interface {
	WriteFrame(frame *models.Frame) error
	Close() error
}

// Encoder opens sinks for a given container/codec
type Encoder interface {
	// MIMEType is the content type of the files this encoder produces
	MIMEType() string
	// Extension is the file extension including the leading dot
	Extension() string
	// Open creates the destination file and returns a sink writing to it
	Open(path string, width, height int) (Sink, error)
}
