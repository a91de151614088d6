package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/models"
	"motion-notifier-go/internal/services/background"
	"motion-notifier-go/internal/services/cooldown"
	"motion-notifier-go/internal/services/motion"
	"motion-notifier-go/internal/services/recorder"
)

// FrameSource delivers frames to the controller, one per call
type FrameSource interface {
	NextFrame(ctx context.Context) (*models.Frame, error)
}

// Dispatcher delivers a finished recording to the notification channel.
// A nil error means delivery was confirmed.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec models.CompletedRecording) error
}

// EventPublisher receives pipeline lifecycle events
type EventPublisher interface {
	PublishEvent(event *models.DetectionEvent) error
}

// State is the controller state
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// DispatchMode selects whether dispatch blocks the frame loop
type DispatchMode string

const (
	DispatchSync  DispatchMode = "sync"
	DispatchAsync DispatchMode = "async"
)

// Config holds controller settings
type Config struct {
	CameraID     string
	Headless     bool // initialize the background from the first frame
	DispatchMode DispatchMode
}

// Deps are the components the controller drives
type Deps struct {
	Model      *background.Model
	Scorer     *motion.Scorer
	Recorder   *recorder.Recorder
	Gate       *cooldown.Gate
	Dispatcher Dispatcher
	Publisher  EventPublisher // optional
	Logger     *zerolog.Logger
}

// Stats counts what the controller has done since start
type Stats struct {
	FramesProcessed    int64 `json:"frames_processed"`
	FramesSkipped      int64 `json:"frames_skipped"`
	SessionsStarted    int64 `json:"sessions_started"`
	SessionsFailed     int64 `json:"sessions_failed"`
	DispatchSucceeded  int64 `json:"dispatch_succeeded"`
	DispatchFailed     int64 `json:"dispatch_failed"`
	MotionOnCooldown   int64 `json:"motion_on_cooldown"`
	BackgroundResets   int64 `json:"background_resets"`
	DispatchesInFlight int64 `json:"dispatches_in_flight"`
}

// SessionStatus describes the open recording session
type SessionStatus struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Start      time.Time `json:"start"`
	FrameCount int64     `json:"frame_count"`
}

// Status is a point-in-time snapshot of the controller
type Status struct {
	CameraID              string         `json:"camera_id"`
	Running               bool           `json:"running"`
	State                 State          `json:"state"`
	BackgroundInitialized bool           `json:"background_initialized"`
	LastScore             float64        `json:"last_score"`
	LastFrameTime         time.Time      `json:"last_frame_time"`
	MotionThreshold       float64        `json:"motion_threshold"`
	BackgroundWeight      float64        `json:"background_weight"`
	CooldownWindow        time.Duration  `json:"cooldown_window"`
	LastSuccess           *time.Time     `json:"last_success,omitempty"`
	CooldownUntil         *time.Time     `json:"cooldown_until,omitempty"`
	ActiveSession         *SessionStatus `json:"active_session,omitempty"`
	Stats                 Stats          `json:"stats"`
}

// Controller runs the idle/recording state machine over a frame stream
type Controller struct {
	cfg        Config
	model      *background.Model
	scorer     *motion.Scorer
	recorder   *recorder.Recorder
	gate       *cooldown.Gate
	dispatcher Dispatcher
	publisher  EventPublisher
	logger     zerolog.Logger

	resetCh chan struct{}

	mu          sync.RWMutex
	running     bool
	state       State
	session     *recorder.Session
	lastReading models.MotionReading
	lastFrameAt time.Time
	stats       Stats

	dispatches sync.WaitGroup
}

// New creates a controller in the Idle state
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Model == nil || deps.Scorer == nil || deps.Recorder == nil || deps.Gate == nil {
		return nil, fmt.Errorf("pipeline requires a background model, scorer, recorder and gate")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("pipeline requires a dispatcher")
	}
	switch cfg.DispatchMode {
	case DispatchSync, DispatchAsync:
	case "":
		cfg.DispatchMode = DispatchSync
	default:
		return nil, fmt.Errorf("invalid dispatch mode %q", cfg.DispatchMode)
	}

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Controller{
		cfg:        cfg,
		model:      deps.Model,
		scorer:     deps.Scorer,
		recorder:   deps.Recorder,
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		logger:     logger.With().Str("camera_id", cfg.CameraID).Logger(),
		resetCh:    make(chan struct{}, 1),
		state:      StateIdle,
	}, nil
}

// ResetBackground asks the controller to re-baseline the background from the
// next frame. It never blocks; repeated calls before that frame coalesce.
func (c *Controller) ResetBackground() {
	select {
	case c.resetCh <- struct{}{}:
		c.logger.Info().Msg("Background reset requested")
	default:
	}
}

// Run pulls frames from source until ctx is cancelled or the source fails.
// An open session is finalized before Run returns and pending async
// dispatches are awaited. Capture failures are reported as ErrCaptureFailure.
func (c *Controller) Run(ctx context.Context, source FrameSource) error {
	c.setRunning(true)
	defer c.setRunning(false)

	c.logger.Info().
		Bool("headless", c.cfg.Headless).
		Str("dispatch_mode", string(c.cfg.DispatchMode)).
		Str("evidence_kind", c.recorder.Kind().String()).
		Msg("Motion pipeline started")

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		frame, err := source.NextFrame(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, models.ErrEndOfStream):
				c.logger.Info().Msg("Video source reached end of stream")
			case errors.Is(err, models.ErrCaptureFailure):
				runErr = err
			default:
				runErr = fmt.Errorf("%v: %w", err, models.ErrCaptureFailure)
			}
			break loop
		}

		if err := c.ProcessFrame(ctx, frame); err != nil {
			runErr = err
			break loop
		}
	}

	c.shutdown()

	if runErr != nil {
		c.logger.Error().Err(runErr).Msg("Motion pipeline stopped with error")
	} else {
		c.logger.Info().Msg("Motion pipeline stopped")
	}
	return runErr
}

// ProcessFrame advances the state machine by one frame. Only a broken
// at-most-one session invariant is returned as an error.
func (c *Controller) ProcessFrame(ctx context.Context, frame *models.Frame) error {
	if frame == nil {
		c.logger.Warn().Msg("Skipping nil frame")
		c.addSkipped()
		return nil
	}

	c.mu.Lock()
	c.lastFrameAt = frame.Timestamp
	c.mu.Unlock()

	select {
	case <-c.resetCh:
		c.resetFrom(frame)
	default:
	}

	if !c.model.Initialized() {
		if !c.cfg.Headless {
			c.addSkipped()
			return nil
		}
		if err := c.model.Initialize(frame); err != nil {
			c.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("Failed to initialize background")
			c.addSkipped()
			return nil
		}
		c.logger.Info().Int64("frame_id", frame.FrameID).Msg("Background initialized from first frame")
	}

	gray, err := frame.Luminance()
	if err == nil {
		err = c.model.UpdateLuma(gray, frame.Width, frame.Height)
	}
	var reading models.MotionReading
	if err == nil {
		var estimate []uint8
		if estimate, err = c.model.CurrentEstimate(); err == nil {
			reading, err = c.scorer.ScoreLuma(gray, estimate, frame.Timestamp)
		}
	}
	if err != nil {
		c.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("Skipping frame")
		c.addSkipped()
		c.expireOnSkip(ctx, frame.Timestamp)
		return nil
	}

	c.mu.Lock()
	c.lastReading = reading
	c.stats.FramesProcessed++
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateIdle:
		return c.handleIdle(ctx, frame, reading)
	case StateRecording:
		c.handleRecording(ctx, frame)
	}
	return nil
}

func (c *Controller) handleIdle(ctx context.Context, frame *models.Frame, reading models.MotionReading) error {
	if !c.scorer.Detected(reading) {
		return nil
	}
	if !c.gate.IsOpen(frame.Timestamp) {
		c.mu.Lock()
		c.stats.MotionOnCooldown++
		c.mu.Unlock()
		c.logger.Debug().
			Float64("score", reading.Score).
			Time("cooldown_until", c.gate.OpensAt()).
			Msg("Motion detected but notification is on cooldown")
		c.publish(models.EventMotionOnCooldown, frame.Timestamp, reading.Score, nil, nil)
		return nil
	}

	session, err := c.recorder.Begin(frame.Timestamp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.state = StateRecording
	c.stats.SessionsStarted++
	c.mu.Unlock()

	c.logger.Info().
		Float64("score", reading.Score).
		Str("session_id", session.ID).
		Int64("frame_id", frame.FrameID).
		Msg("Motion detected, recording started")
	c.publish(models.EventSessionStarted, frame.Timestamp, reading.Score, nil, nil)

	if err := session.Append(frame); err != nil {
		c.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Recording session failed on first frame")
	}

	// image evidence has no duration and completes on the triggering frame
	if session.IsExpired(frame.Timestamp) {
		c.complete(ctx, session, frame.Timestamp)
	}
	return nil
}

func (c *Controller) handleRecording(ctx context.Context, frame *models.Frame) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session.IsExpired(frame.Timestamp) {
		c.complete(ctx, session, frame.Timestamp)
		return
	}
	if err := session.Append(frame); err != nil {
		c.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Recording session failed")
	}
}

// expireOnSkip lets an unusable frame still end an expired session so the
// controller never stays in Recording past the deadline
func (c *Controller) expireOnSkip(ctx context.Context, now time.Time) {
	c.mu.RLock()
	session := c.session
	state := c.state
	c.mu.RUnlock()

	if state == StateRecording && session != nil && session.IsExpired(now) {
		c.complete(ctx, session, now)
	}
}

// complete closes the session, hands the artifact to the dispatcher and
// returns to Idle
func (c *Controller) complete(ctx context.Context, session *recorder.Session, now time.Time) {
	rec := session.Close(now)

	c.mu.Lock()
	c.session = nil
	c.state = StateIdle
	if rec == nil {
		c.stats.SessionsFailed++
	}
	c.mu.Unlock()

	if rec == nil {
		c.logger.Warn().Err(session.Err()).Str("session_id", session.ID).Msg("Recording session failed, notification suppressed")
		c.publish(models.EventSessionFailed, now, 0, nil, session.Err())
		return
	}
	c.publish(models.EventSessionCompleted, now, 0, rec, nil)

	if c.cfg.DispatchMode == DispatchAsync {
		c.mu.Lock()
		c.stats.DispatchesInFlight++
		c.mu.Unlock()

		c.dispatches.Add(1)
		go func() {
			defer c.dispatches.Done()
			c.dispatch(context.WithoutCancel(ctx), rec, now)

			c.mu.Lock()
			c.stats.DispatchesInFlight--
			c.mu.Unlock()
		}()
		return
	}
	c.dispatch(ctx, rec, now)
}

// dispatch sends rec and starts the cooldown at closedAt on confirmed delivery
func (c *Controller) dispatch(ctx context.Context, rec *models.CompletedRecording, closedAt time.Time) {
	start := time.Now()
	err := c.dispatcher.Dispatch(ctx, *rec)
	if err != nil {
		c.mu.Lock()
		c.stats.DispatchFailed++
		c.mu.Unlock()

		c.logger.Error().
			Err(err).
			Str("session_id", rec.SessionID).
			Str("path", rec.Path).
			Msg("Notification dispatch failed, evidence kept on disk")
		c.publish(models.EventDispatchFailed, closedAt, 0, rec, err)
		return
	}

	c.gate.RecordSuccess(closedAt)

	c.mu.Lock()
	c.stats.DispatchSucceeded++
	c.mu.Unlock()

	c.logger.Info().
		Str("session_id", rec.SessionID).
		Str("filename", rec.Filename).
		Dur("elapsed", time.Since(start)).
		Time("cooldown_until", c.gate.OpensAt()).
		Msg("Notification dispatched")
	c.publish(models.EventDispatchSucceeded, closedAt, 0, rec, nil)
}

func (c *Controller) resetFrom(frame *models.Frame) {
	if err := c.model.Initialize(frame); err != nil {
		c.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("Background reset failed")
		return
	}

	c.mu.Lock()
	c.stats.BackgroundResets++
	c.mu.Unlock()

	c.logger.Info().Int64("frame_id", frame.FrameID).Msg("Background reset from current frame")
	c.publish(models.EventBackgroundReset, frame.Timestamp, 0, nil, nil)
}

// shutdown finalizes an open session without dispatching it and waits for
// async dispatches
func (c *Controller) shutdown() {
	c.mu.Lock()
	session := c.session
	end := c.lastFrameAt
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	if session != nil {
		if end.IsZero() {
			end = time.Now()
		}
		if rec := session.Close(end); rec != nil {
			c.logger.Info().
				Str("session_id", rec.SessionID).
				Str("path", rec.Path).
				Int64("frames", rec.FrameCount).
				Msg("Open recording finalized on shutdown")
			c.publish(models.EventSessionFinalized, end, 0, rec, nil)
		}
	}

	c.dispatches.Wait()
}

func (c *Controller) publish(t models.DetectionEventType, ts time.Time, score float64, rec *models.CompletedRecording, err error) {
	if c.publisher == nil {
		return
	}
	event := &models.DetectionEvent{
		ID:        uuid.New().String(),
		Type:      t,
		CameraID:  c.cfg.CameraID,
		Timestamp: ts,
		Score:     score,
		Recording: rec,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if perr := c.publisher.PublishEvent(event); perr != nil {
		c.logger.Debug().Err(perr).Str("event", string(t)).Msg("Failed to publish pipeline event")
	}
}

func (c *Controller) addSkipped() {
	c.mu.Lock()
	c.stats.FramesSkipped++
	c.mu.Unlock()
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		CameraID:      c.cfg.CameraID,
		Running:       c.running,
		State:         c.state,
		LastScore:     c.lastReading.Score,
		LastFrameTime: c.lastFrameAt,
		Stats:         c.stats,
	}
	session := c.session
	c.mu.RUnlock()

	st.BackgroundInitialized = c.model.Initialized()
	st.BackgroundWeight = c.model.Weight()
	st.MotionThreshold = c.scorer.Threshold()
	st.CooldownWindow = c.gate.Window()
	if last, ok := c.gate.LastSuccess(); ok {
		opens := c.gate.OpensAt()
		st.LastSuccess = &last
		st.CooldownUntil = &opens
	}
	if session != nil {
		st.ActiveSession = &SessionStatus{
			ID:         session.ID,
			Path:       session.Path,
			Start:      session.Start,
			FrameCount: session.FrameCount(),
		}
	}
	return st
}

// State returns the current controller state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
