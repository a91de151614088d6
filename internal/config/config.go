package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Camera
	CameraID     string
	CameraDevice string // device index, stream URL or video file
	FrameWidth   int
	FrameHeight  int
	FPS          int

	// Motion Detection
	PixelThreshold   int
	MotionThreshold  float64
	AccumulateWeight float64
	Headless         bool // initialize the background from the first frame

	// Evidence Recording
	EvidenceKind      string // image | clip
	RecordingDuration time.Duration
	OutputDir         string
	ClipEncoder       string // gocv | ffmpeg
	ClipCodec         string // FourCC for the gocv writer
	JPEGQuality       int

	// Notification
	NotifyURL            string
	NotifyTimeoutImage   time.Duration
	NotifyTimeoutClip    time.Duration
	NotificationCooldown time.Duration
	DispatchMode         string // sync | async

	// Control Plane
	ControlHost string
	ControlPort int // 0 disables the HTTP control plane
	GRPCPort    int // 0 disables the gRPC health service

	// NATS (events and remote control)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown
	EventsSubject      string
	ControlSubject     string
	DeliveriesSubject  string

	// Notification Bridge
	BridgeHost          string
	BridgePort          int
	TelegramBotToken    string
	TelegramChatID      string
	TelegramAPIURL      string
	TelegramRetryEvery  time.Duration
	BridgeUploadTimeout time.Duration
	BridgeMaxUpload     int64 // bytes

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

// Load reads the given env files (".env" when none) and the environment
func Load(files ...string) *Config {
	// Load .env file if it exists
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Strs("files", files).Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Camera
		CameraID:     getEnv("CAMERA_ID", "cam-0"),
		CameraDevice: getEnv("CAMERA_DEVICE", "0"),
		FrameWidth:   getEnvInt("FRAME_WIDTH", 640),
		FrameHeight:  getEnvInt("FRAME_HEIGHT", 480),
		FPS:          getEnvInt("FPS", 10),

		// Motion Detection
		PixelThreshold:   getEnvInt("PIXEL_THRESHOLD", 20),
		MotionThreshold:  getEnvFloat("MOTION_THRESHOLD", 0.05),
		AccumulateWeight: getEnvFloat("ACCUMULATE_WEIGHT", 0.5),
		Headless:         getEnvBool("HEADLESS", true),

		// Evidence Recording
		EvidenceKind:      getEnv("EVIDENCE_KIND", "clip"),
		RecordingDuration: getEnvDuration("RECORDING_DURATION", 5*time.Second),
		OutputDir:         getEnv("OUTPUT_DIR", "./video_clips"),
		ClipEncoder:       getEnv("CLIP_ENCODER", "gocv"),
		ClipCodec:         getEnv("CLIP_CODEC", "mp4v"),
		JPEGQuality:       getEnvInt("JPEG_QUALITY", 90),

		// Notification
		NotifyURL:            getEnv("NOTIFY_URL", "http://127.0.0.1:8000/send_image/"),
		NotifyTimeoutImage:   getEnvDuration("NOTIFY_TIMEOUT_IMAGE", 10*time.Second),
		NotifyTimeoutClip:    getEnvDuration("NOTIFY_TIMEOUT_CLIP", 30*time.Second),
		NotificationCooldown: getEnvDuration("NOTIFICATION_COOLDOWN", 60*time.Second),
		DispatchMode:         getEnv("DISPATCH_MODE", "sync"),

		// Control Plane
		ControlHost: getEnv("CONTROL_HOST", "127.0.0.1"),
		ControlPort: getEnvInt("CONTROL_PORT", 8090),
		GRPCPort:    getEnvInt("GRPC_PORT", 50051),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		EventsSubject:      getEnv("EVENTS_SUBJECT", "motion.events"),
		ControlSubject:     getEnv("CONTROL_SUBJECT", "motion.control"),
		DeliveriesSubject:  getEnv("DELIVERIES_SUBJECT", "notifications.delivered"),

		// Notification Bridge (local-only by default)
		BridgeHost:          getEnv("BRIDGE_HOST", "127.0.0.1"),
		BridgePort:          getEnvInt("BRIDGE_PORT", 8000),
		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:      getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramRetryEvery:  getEnvDuration("TELEGRAM_RETRY_INTERVAL", 10*time.Second),
		BridgeUploadTimeout: getEnvDuration("BRIDGE_UPLOAD_TIMEOUT", 60*time.Second),
		BridgeMaxUpload:     int64(getEnvInt("BRIDGE_MAX_UPLOAD", 50*1024*1024)), // 50MB

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// ValidateDetector checks the settings used by the motion detector
func (c *Config) ValidateDetector() error {
	var problems []string

	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		problems = append(problems, fmt.Sprintf("frame size %dx%d must be positive", c.FrameWidth, c.FrameHeight))
	}
	if c.FPS <= 0 {
		problems = append(problems, "FPS must be positive")
	}
	if c.PixelThreshold <= 0 || c.PixelThreshold > 255 {
		problems = append(problems, "PIXEL_THRESHOLD must be in 1..255")
	}
	if c.MotionThreshold <= 0 || c.MotionThreshold >= 1 {
		problems = append(problems, "MOTION_THRESHOLD must be in (0,1)")
	}
	if c.AccumulateWeight <= 0 || c.AccumulateWeight > 1 {
		problems = append(problems, "ACCUMULATE_WEIGHT must be in (0,1]")
	}
	switch c.EvidenceKind {
	case "image", "clip":
	default:
		problems = append(problems, fmt.Sprintf("EVIDENCE_KIND %q must be image or clip", c.EvidenceKind))
	}
	if c.EvidenceKind == "clip" && c.RecordingDuration <= 0 {
		problems = append(problems, "RECORDING_DURATION must be positive for clips")
	}
	switch c.ClipEncoder {
	case "gocv", "ffmpeg":
	default:
		problems = append(problems, fmt.Sprintf("CLIP_ENCODER %q must be gocv or ffmpeg", c.ClipEncoder))
	}
	switch c.DispatchMode {
	case "sync", "async":
	default:
		problems = append(problems, fmt.Sprintf("DISPATCH_MODE %q must be sync or async", c.DispatchMode))
	}
	if c.NotificationCooldown < 0 {
		problems = append(problems, "NOTIFICATION_COOLDOWN cannot be negative")
	}
	if c.OutputDir == "" {
		problems = append(problems, "OUTPUT_DIR is required")
	}
	if c.NotifyURL == "" {
		problems = append(problems, "NOTIFY_URL is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid detector configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateBridge checks the settings used by the notification bridge
func (c *Config) ValidateBridge() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.BridgeMaxUpload <= 0 {
		return fmt.Errorf("BRIDGE_MAX_UPLOAD must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
