package notifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motion-notifier-go/internal/models"
)

func writeRecording(t *testing.T, kind models.EvidenceKind, name, mime string, data []byte) models.CompletedRecording {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return models.CompletedRecording{
		CameraID: "cam",
		Kind:     kind,
		Path:     path,
		Filename: name,
		MIMEType: mime,
		FileSize: int64(len(data)),
	}
}

func TestDispatchUploadsFile(t *testing.T) {
	var gotName, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send_image/" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"sent"}`))
	}))
	defer server.Close()

	c := NewClient(Config{URL: server.URL + "/send_image/"})
	rec := writeRecording(t, models.EvidenceClip, "20250101120000000000_motion_clip.mp4", "video/mp4", []byte("clip-bytes"))

	if err := c.Dispatch(context.Background(), rec); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if gotName != rec.Filename {
		t.Errorf("Expected filename %s, got %s", rec.Filename, gotName)
	}
	if gotType != "video/mp4" {
		t.Errorf("Expected content type video/mp4, got %s", gotType)
	}
	if gotBody != "clip-bytes" {
		t.Errorf("Unexpected body %q", gotBody)
	}
}

func TestDispatchNonOKIsFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{name: "not ready", status: http.StatusServiceUnavailable, body: `{"detail":"bot not ready"}`, detail: "bot not ready"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"detail":"no permission"}`, detail: "no permission"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", detail: "upstream down"},
		{name: "created", status: http.StatusCreated, body: `{"status":"success"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(Config{URL: server.URL})
			rec := writeRecording(t, models.EvidenceImage, "a.jpg", "image/jpeg", []byte{0xFF, 0xD8})

			err := c.Dispatch(context.Background(), rec)
			if !errors.Is(err, models.ErrDispatch) {
				t.Fatalf("Expected ErrDispatch, got %v", err)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("Expected detail %q in %q", tt.detail, err.Error())
			}
		})
	}
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(Config{URL: server.URL, ImageTimeout: 50 * time.Millisecond})
	rec := writeRecording(t, models.EvidenceImage, "a.jpg", "image/jpeg", []byte{1})

	start := time.Now()
	err := c.Dispatch(context.Background(), rec)
	if !errors.Is(err, models.ErrDispatch) {
		t.Fatalf("Expected ErrDispatch, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Dispatch did not honor timeout")
	}
}

func TestDispatchMissingFile(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1"})
	rec := models.CompletedRecording{Kind: models.EvidenceClip, Path: filepath.Join(t.TempDir(), "missing.mp4")}
	if err := c.Dispatch(context.Background(), rec); !errors.Is(err, models.ErrDispatch) {
		t.Fatalf("Expected ErrDispatch, got %v", err)
	}
}

func TestTimeoutPerKind(t *testing.T) {
	c := NewClient(Config{})
	if c.Timeout(models.EvidenceImage) != 10*time.Second {
		t.Errorf("Unexpected image timeout %v", c.Timeout(models.EvidenceImage))
	}
	if c.Timeout(models.EvidenceClip) != 30*time.Second {
		t.Errorf("Unexpected clip timeout %v", c.Timeout(models.EvidenceClip))
	}
}
