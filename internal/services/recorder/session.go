package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/models"
)

// SessionState is the lifecycle state of a recording session
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
	SessionFailed SessionState = "failed"
)

// Config holds the recorder settings
type Config struct {
	CameraID  string
	OutputDir string
	Kind      models.EvidenceKind
	Duration  time.Duration // ignored for image evidence
	Suffix    string        // appended to the timestamp in file names
}

// Recorder owns the single active recording session
type Recorder struct {
	cfg     Config
	encoder Encoder

	mu     sync.Mutex
	active *Session
}

// Session is one evidence capture
type Session struct {
	ID       string
	CameraID string
	Kind     models.EvidenceKind
	Start    time.Time
	Duration time.Duration
	Path     string

	recorder *Recorder
	encoder  Encoder

	mu         sync.Mutex
	state      SessionState
	sink       Sink
	frameCount int64
	err        error
}

// New creates a recorder and makes sure the output directory exists
func New(cfg Config, encoder Encoder) (*Recorder, error) {
	if encoder == nil {
		return nil, fmt.Errorf("recorder encoder is required")
	}
	if !cfg.Kind.IsValid() {
		return nil, fmt.Errorf("invalid evidence kind %q", cfg.Kind)
	}
	if cfg.Kind == models.EvidenceImage {
		cfg.Duration = 0
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	log.Info().
		Str("camera_id", cfg.CameraID).
		Str("output_dir", cfg.OutputDir).
		Str("kind", cfg.Kind.String()).
		Str("mime_type", encoder.MIMEType()).
		Dur("duration", cfg.Duration).
		Msg("Recorder initialized")

	return &Recorder{cfg: cfg, encoder: encoder}, nil
}

// Begin allocates a new session starting at start. It fails with
// ErrSessionAlreadyActive while another session is open.
func (r *Recorder) Begin(start time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, fmt.Errorf("session %s started at %s: %w",
			r.active.ID, r.active.Start.Format(time.RFC3339Nano), models.ErrSessionAlreadyActive)
	}

	name := destinationName(start, r.cfg.Suffix, r.encoder.Extension())
	s := &Session{
		ID:       uuid.New().String(),
		CameraID: r.cfg.CameraID,
		Kind:     r.cfg.Kind,
		Start:    start,
		Duration: r.cfg.Duration,
		Path:     uniquePath(r.cfg.OutputDir, name),
		recorder: r,
		encoder:  r.encoder,
		state:    SessionOpen,
	}
	r.active = s

	log.Info().
		Str("camera_id", s.CameraID).
		Str("session_id", s.ID).
		Str("path", s.Path).
		Dur("duration", s.Duration).
		Msg("Recording session started")

	return s, nil
}

// Active returns the open session, if any
func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Kind returns the evidence kind this recorder produces
func (r *Recorder) Kind() models.EvidenceKind {
	return r.cfg.Kind
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

// Append writes frame into the session. The sink is opened lazily with the
// first frame's resolution. A sink error moves the session to Failed and
// later calls become no-ops.
func (s *Session) Append(frame *models.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionOpen {
		return nil
	}

	if s.sink == nil {
		sink, err := s.encoder.Open(s.Path, frame.Width, frame.Height)
		if err != nil {
			return s.fail(fmt.Errorf("open %s: %v: %w", s.Path, err, models.ErrSinkWrite))
		}
		s.sink = sink
	}

	if err := s.sink.WriteFrame(frame); err != nil {
		return s.fail(fmt.Errorf("write frame %d: %v: %w", frame.FrameID, err, models.ErrSinkWrite))
	}
	s.frameCount++
	return nil
}

// fail must be called with s.mu held
func (s *Session) fail(err error) error {
	s.state = SessionFailed
	s.err = err
	if s.sink != nil {
		if cerr := s.sink.Close(); cerr != nil {
			log.Debug().Err(cerr).Str("session_id", s.ID).Msg("Failed to close sink of failed session")
		}
		s.sink = nil
	}

	log.Error().
		Err(err).
		Str("camera_id", s.CameraID).
		Str("session_id", s.ID).
		Str("path", s.Path).
		Msg("Recording session failed")
	return err
}

// IsExpired reports whether the target duration has elapsed at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.Sub(s.Start) >= s.Duration
}

// Close finalizes the session and releases the recorder slot. It returns the
// artifact descriptor, or nil when the session failed.
func (s *Session) Close(end time.Time) *models.CompletedRecording {
	defer s.recorder.release(s)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionOpen {
		return nil
	}

	if s.sink == nil {
		s.fail(fmt.Errorf("no frames captured: %w", models.ErrSinkWrite))
		return nil
	}
	if err := s.sink.Close(); err != nil {
		s.sink = nil
		s.fail(fmt.Errorf("finalize %s: %v: %w", s.Path, err, models.ErrSinkWrite))
		return nil
	}
	s.sink = nil

	info, err := os.Stat(s.Path)
	if err != nil || info.Size() == 0 {
		s.fail(fmt.Errorf("finalized file %s is missing or empty: %w", s.Path, models.ErrSinkWrite))
		return nil
	}

	s.state = SessionClosed
	rec := &models.CompletedRecording{
		SessionID:  s.ID,
		CameraID:   s.CameraID,
		Kind:       s.Kind,
		Path:       s.Path,
		Filename:   filepath.Base(s.Path),
		MIMEType:   s.encoder.MIMEType(),
		StartTime:  s.Start,
		EndTime:    end,
		Duration:   s.Duration,
		FrameCount: s.frameCount,
		FileSize:   info.Size(),
	}

	log.Info().
		Str("camera_id", s.CameraID).
		Str("session_id", s.ID).
		Str("path", s.Path).
		Int64("frames", rec.FrameCount).
		Int64("size_bytes", rec.FileSize).
		Msg("Recording session finished")

	return rec
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FrameCount returns the number of frames appended so far
func (s *Session) FrameCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// Err returns the error that failed the session
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
