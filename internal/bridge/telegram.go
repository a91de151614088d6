package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// TelegramClient talks to the Telegram Bot API
type TelegramClient struct {
	apiURL     string
	botToken   string
	chatID     string
	httpClient *http.Client
}

// TelegramResponse represents the response from Telegram API
type TelegramResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// BotInfo is the subset of getMe we use
type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ChatInfo is the subset of getChat we use
type ChatInfo struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// Name returns a printable name for the chat
func (c *ChatInfo) Name() string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	default:
		return fmt.Sprintf("%d", c.ID)
	}
}

// APIError is a request the Bot API answered with ok=false
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.ErrorCode, e.Description)
}

// Forbidden reports whether the bot lacks permission to post in the chat
func (e *APIError) Forbidden() bool {
	return e.ErrorCode == http.StatusForbidden || e.StatusCode == http.StatusForbidden
}

// NewTelegramClient creates a Bot API client
func NewTelegramClient(apiURL, botToken, chatID string, timeout time.Duration) *TelegramClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TelegramClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ChatID returns the destination chat
func (tc *TelegramClient) ChatID() string {
	return tc.chatID
}

func (tc *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", tc.apiURL, tc.botToken, method)
}

// GetMe checks the token and returns the bot identity
func (tc *TelegramClient) GetMe(ctx context.Context) (*BotInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.methodURL("getMe"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	defer resp.Body.Close()

	result, err := handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var info BotInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	return &info, nil
}

// GetChat checks that the configured chat exists and the bot can see it
func (tc *TelegramClient) GetChat(ctx context.Context) (*ChatInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.methodURL("getChat"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("chat_id", tc.chatID)
	req.URL.RawQuery = q.Encode()

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", tc.chatID, err)
	}
	defer resp.Body.Close()

	result, err := handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var info ChatInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	return &info, nil
}

// MethodFor picks the Bot API method and form field for a content type
func MethodFor(mimeType string) (method, field string) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "sendPhoto", "photo"
	case strings.HasPrefix(mimeType, "video/"):
		return "sendVideo", "video"
	default:
		return "sendDocument", "document"
	}
}

// SendFile posts a file to the configured chat
func (tc *TelegramClient) SendFile(ctx context.Context, filename, mimeType string, data []byte, caption string) error {
	method, field := MethodFor(mimeType)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", tc.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", mimeType)
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.methodURL(method), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}
	defer resp.Body.Close()

	_, err = handleResponse(resp)
	return err
}

// handleResponse processes the Telegram API response
func handleResponse(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var telegramResp TelegramResponse
	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorCode: resp.StatusCode, Description: strings.TrimSpace(string(body))}
	}

	if !telegramResp.OK {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   telegramResp.ErrorCode,
			Description: telegramResp.Description,
		}
	}

	return telegramResp.Result, nil
}
