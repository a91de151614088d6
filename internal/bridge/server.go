package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/api/middleware"
	"motion-notifier-go/internal/config"
	"motion-notifier-go/internal/logging"
	"motion-notifier-go/internal/models"
)

const defaultFilename = "image.png"

// DeliveryPublisher receives the outcome of every forwarded upload
type DeliveryPublisher interface {
	PublishDelivery(report *models.DeliveryReport) error
}

// Server is the HTTP front of the notification bridge
type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	forwarder *Forwarder
	publisher DeliveryPublisher
}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewServer creates the bridge server; publisher may be nil
func NewServer(cfg *config.Config, forwarder *Forwarder, publisher DeliveryPublisher) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = cfg.BridgeMaxUpload
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger())

	s := &Server{
		config:    cfg,
		router:    router,
		forwarder: forwarder,
		publisher: publisher,
	}
	router.GET("/health", s.health)
	router.POST("/send_image/", s.sendImage)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BridgeHost, cfg.BridgePort),
		Handler: router,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting notification bridge")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping notification bridge")
	return s.server.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"ready":   s.forwarder.Ready(),
		"chat_id": s.forwarder.ChatID(),
	}
	if bot := s.forwarder.Bot(); bot != nil {
		resp["bot"] = bot.Username
	}
	if chat := s.forwarder.Chat(); chat != nil {
		resp["chat"] = chat.Name()
	}
	if !s.forwarder.Ready() {
		resp["status"] = "starting"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// sendImage forwards the multipart field "file" to the chat
func (s *Server) sendImage(c *gin.Context) {
	if !s.forwarder.Ready() {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: "chat bot is not ready yet, retry shortly"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: fmt.Sprintf("missing file upload: %v", err)})
		return
	}
	if fh.Size > s.config.BridgeMaxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Detail: fmt.Sprintf("file exceeds %d bytes", s.config.BridgeMaxUpload)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("failed to open upload: %v", err)})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("failed to read upload: %v", err)})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "uploaded file is empty"})
		return
	}

	filename := fh.Filename
	if filename == "" {
		filename = defaultFilename
	}
	mimeType := detectMIME(filename, fh.Header.Get("Content-Type"), data)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.BridgeUploadTimeout)
	defer cancel()

	start := time.Now()
	err = s.forwarder.Forward(ctx, filename, mimeType, data)
	s.report(filename, mimeType, len(data), err)

	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Forbidden():
			logging.Warn(c).Err(err).Str("filename", filename).Msg("Bot has no permission to post in chat")
			c.JSON(http.StatusForbidden, errorResponse{Detail: fmt.Sprintf("no permission to post in chat %s", s.forwarder.ChatID())})
		case errors.As(err, &apiErr):
			logging.Error(c).Err(err).Str("filename", filename).Msg("Chat API rejected upload")
			c.JSON(http.StatusBadGateway, errorResponse{Detail: fmt.Sprintf("chat API error: %s (status: %d)", apiErr.Description, apiErr.ErrorCode)})
		default:
			logging.Error(c).Err(err).Str("filename", filename).Msg("Failed to reach chat API")
			c.JSON(http.StatusBadGateway, errorResponse{Detail: fmt.Sprintf("chat API unreachable: %v", err)})
		}
		return
	}

	logging.Info(c).
		Str("filename", filename).
		Str("mime_type", mimeType).
		Int("size_bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("File forwarded to chat")

	c.JSON(http.StatusOK, successResponse{
		Status:  "success",
		Message: fmt.Sprintf("sent '%s' to chat %s", filename, s.forwarder.ChatID()),
	})
}

func (s *Server) report(filename, mimeType string, size int, err error) {
	if s.publisher == nil {
		return
	}
	report := &models.DeliveryReport{
		Filename:  filename,
		MIMEType:  mimeType,
		Size:      size,
		Delivered: err == nil,
		Timestamp: time.Now(),
	}
	if err != nil {
		report.Error = err.Error()
	}
	if perr := s.publisher.PublishDelivery(report); perr != nil {
		log.Debug().Err(perr).Msg("Failed to publish delivery report")
	}
}

// detectMIME trusts the declared part type unless it is missing or generic
func detectMIME(filename, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
