package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/models"
)

// Config holds the notification bridge settings
type Config struct {
	URL          string
	ImageTimeout time.Duration
	ClipTimeout  time.Duration
}

// Client uploads finished recordings to the notification bridge
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// bridgeResponse is the JSON body returned by the bridge
type bridgeResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// NewClient creates a bridge client
func NewClient(cfg Config) *Client {
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 10 * time.Second
	}
	if cfg.ClipTimeout <= 0 {
		cfg.ClipTimeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// Timeout returns the upload deadline for a recording of the given kind
func (c *Client) Timeout(kind models.EvidenceKind) time.Duration {
	if kind == models.EvidenceImage {
		return c.cfg.ImageTimeout
	}
	return c.cfg.ClipTimeout
}

// Dispatch posts the recording as multipart field "file". Only a 200
// response counts as delivered.
func (c *Client) Dispatch(ctx context.Context, rec models.CompletedRecording) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout(rec.Kind))
	defer cancel()

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v: %w", rec.Path, err, models.ErrDispatch)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, rec.Filename))
	header.Set("Content-Type", rec.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s: %v: %w", rec.Filename, err, models.ErrDispatch)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, rec, time.Since(start))
}

func (c *Client) handleResponse(resp *http.Response, rec models.CompletedRecording, elapsed time.Duration) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read response body: %v: %w", err, models.ErrDispatch)
	}

	var br bridgeResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &br); err != nil {
			br.Detail = string(raw)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %d: %s: %w", resp.StatusCode, br.Detail, models.ErrDispatch)
	}

	log.Info().
		Str("camera_id", rec.CameraID).
		Str("session_id", rec.SessionID).
		Str("filename", rec.Filename).
		Int64("size_bytes", rec.FileSize).
		Dur("elapsed", elapsed).
		Str("message", br.Message).
		Msg("Recording delivered to notification bridge")
	return nil
}
