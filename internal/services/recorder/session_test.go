package recorder

import (
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motion-notifier-go/internal/models"
)

// fileEncoder writes raw frame bytes to the destination file
type fileEncoder struct {
	failOpen  bool
	failWrite int // fail on the n-th write (1-based), 0 never
}

func (e *fileEncoder) MIMEType() string  { return "video/x-raw" }
func (e *fileEncoder) Extension() string { return ".raw" }

func (e *fileEncoder) Open(path string, width, height int) (Sink, error) {
	if e.failOpen {
		return nil, errors.New("device busy")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileSink{f: f, failWrite: e.failWrite}, nil
}

type fileSink struct {
	f         *os.File
	writes    int
	failWrite int
}

func (s *fileSink) WriteFrame(frame *models.Frame) error {
	s.writes++
	if s.failWrite > 0 && s.writes == s.failWrite {
		return errors.New("disk full")
	}
	_, err := s.f.Write(frame.Data)
	return err
}

func (s *fileSink) Close() error {
	return s.f.Close()
}

func testFrame(id int64, ts time.Time, value byte) *models.Frame {
	data := make([]byte, 4*3*3)
	for i := range data {
		data[i] = value
	}
	return &models.Frame{CameraID: "cam", Data: data, Width: 4, Height: 3, FrameID: id, Timestamp: ts}
}

func newClipRecorder(t *testing.T, enc Encoder) *Recorder {
	t.Helper()
	r, err := New(Config{
		CameraID:  "cam",
		OutputDir: t.TempDir(),
		Kind:      models.EvidenceClip,
		Duration:  5 * time.Second,
		Suffix:    "motion_clip",
	}, enc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestBeginRejectsSecondSession(t *testing.T) {
	r := newClipRecorder(t, &fileEncoder{})
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	s, err := r.Begin(start)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := r.Begin(start.Add(time.Second)); !errors.Is(err, models.ErrSessionAlreadyActive) {
		t.Fatalf("Expected ErrSessionAlreadyActive, got %v", err)
	}

	if err := s.Append(testFrame(1, start, 10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	s.Close(start.Add(5 * time.Second))

	if r.Active() != nil {
		t.Fatal("Expected slot to be released after Close")
	}
	if _, err := r.Begin(start.Add(6 * time.Second)); err != nil {
		t.Fatalf("Begin after Close failed: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	r := newClipRecorder(t, &fileEncoder{})
	start := time.Date(2025, 1, 1, 12, 0, 0, 123456000, time.UTC)

	s, err := r.Begin(start)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if want := "20250101120000123456_motion_clip.raw"; filepath.Base(s.Path) != want {
		t.Errorf("Expected file name %s, got %s", want, filepath.Base(s.Path))
	}

	for i := 0; i < 50; i++ {
		ts := start.Add(time.Duration(i) * 100 * time.Millisecond)
		if s.IsExpired(ts) {
			t.Fatalf("Session expired early at frame %d", i)
		}
		if err := s.Append(testFrame(int64(i), ts, byte(i))); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}
	end := start.Add(5 * time.Second)
	if !s.IsExpired(end) {
		t.Fatal("Expected session to be expired at start+duration")
	}

	rec := s.Close(end)
	if rec == nil {
		t.Fatal("Expected a completed recording")
	}
	if rec.FrameCount != 50 {
		t.Errorf("Expected 50 frames, got %d", rec.FrameCount)
	}
	if rec.FileSize != 50*36 {
		t.Errorf("Expected %d bytes, got %d", 50*36, rec.FileSize)
	}
	if rec.Duration != 5*time.Second {
		t.Errorf("Expected duration 5s, got %v", rec.Duration)
	}
	if rec.MIMEType != "video/x-raw" || rec.Kind != models.EvidenceClip {
		t.Errorf("Unexpected descriptor %+v", rec)
	}
	if s.State() != SessionClosed {
		t.Errorf("Expected closed state, got %s", s.State())
	}

	// closed sessions ignore further appends
	if err := s.Append(testFrame(99, end, 0)); err != nil {
		t.Errorf("Append after Close returned %v", err)
	}
	if s.FrameCount() != 50 {
		t.Errorf("Frame count changed after Close: %d", s.FrameCount())
	}
}

func TestSessionFailsOnSinkError(t *testing.T) {
	tests := []struct {
		name string
		enc  *fileEncoder
	}{
		{name: "open", enc: &fileEncoder{failOpen: true}},
		{name: "write", enc: &fileEncoder{failWrite: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newClipRecorder(t, tt.enc)
			start := time.Now()
			s, err := r.Begin(start)
			if err != nil {
				t.Fatalf("Begin failed: %v", err)
			}

			var appendErr error
			for i := 0; i < 3 && appendErr == nil; i++ {
				appendErr = s.Append(testFrame(int64(i), start, 1))
			}
			if !errors.Is(appendErr, models.ErrSinkWrite) {
				t.Fatalf("Expected ErrSinkWrite, got %v", appendErr)
			}
			if s.State() != SessionFailed {
				t.Fatalf("Expected failed state, got %s", s.State())
			}
			if err := s.Append(testFrame(9, start, 1)); err != nil {
				t.Errorf("Append on failed session should be a no-op, got %v", err)
			}
			if rec := s.Close(start.Add(time.Second)); rec != nil {
				t.Errorf("Expected nil recording for failed session, got %+v", rec)
			}
			if r.Active() != nil {
				t.Error("Expected slot to be released for failed session")
			}
		})
	}
}

func TestCloseWithoutFramesReturnsNil(t *testing.T) {
	r := newClipRecorder(t, &fileEncoder{})
	s, err := r.Begin(time.Now())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if rec := s.Close(time.Now()); rec != nil {
		t.Fatalf("Expected nil recording, got %+v", rec)
	}
	if s.State() != SessionFailed {
		t.Errorf("Expected failed state, got %s", s.State())
	}
}

func TestImageRecorderHasZeroDuration(t *testing.T) {
	r, err := New(Config{
		CameraID:  "cam",
		OutputDir: t.TempDir(),
		Kind:      models.EvidenceImage,
		Duration:  5 * time.Second,
		Suffix:    "motion",
	}, NewJPEGEncoder(90))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	s, err := r.Begin(start)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !s.IsExpired(start) {
		t.Fatal("Expected image session to be expired immediately")
	}
	if err := s.Append(testFrame(1, start, 200)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := s.Close(start)
	if rec == nil {
		t.Fatal("Expected a completed recording")
	}
	if rec.MIMEType != "image/jpeg" || !strings.HasSuffix(rec.Filename, ".jpg") {
		t.Errorf("Unexpected descriptor %+v", rec)
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("Expected 4x3 image, got %v", b)
	}
}

func TestNewRejectsInvalidKind(t *testing.T) {
	_, err := New(Config{OutputDir: t.TempDir(), Kind: "gif"}, &fileEncoder{})
	if err == nil {
		t.Fatal("Expected error for invalid evidence kind")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	name := "20250101120000000000_motion.jpg"

	first := uniquePath(dir, name)
	if err := os.WriteFile(first, []byte{1}, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	second := uniquePath(dir, name)
	if filepath.Base(second) != "20250101120000000000_motion_1.jpg" {
		t.Errorf("Unexpected unique path %s", second)
	}
}

func TestFFmpegArgs(t *testing.T) {
	enc := NewFFmpegEncoder(10)
	args := strings.Join(enc.Args("/tmp/out.mp4", 640, 480), " ")
	for _, want := range []string{"-pix_fmt bgr24", "-s 640x480", "-r 10", "-i -", "/tmp/out.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected %q in ffmpeg args %q", want, args)
		}
	}
}
