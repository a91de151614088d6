package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.CameraID != "cam-0" || cfg.CameraDevice != "0" {
		t.Errorf("Unexpected camera defaults %s %s", cfg.CameraID, cfg.CameraDevice)
	}
	if cfg.MotionThreshold != 0.05 || cfg.PixelThreshold != 20 || cfg.AccumulateWeight != 0.5 {
		t.Errorf("Unexpected motion defaults %+v", cfg)
	}
	if cfg.RecordingDuration != 5*time.Second || cfg.NotificationCooldown != 60*time.Second {
		t.Errorf("Unexpected timing defaults %v %v", cfg.RecordingDuration, cfg.NotificationCooldown)
	}
	if cfg.NotifyURL != "http://127.0.0.1:8000/send_image/" {
		t.Errorf("Unexpected notify URL %s", cfg.NotifyURL)
	}
	if cfg.BridgeHost != "127.0.0.1" || cfg.BridgePort != 8000 {
		t.Errorf("Unexpected bridge address %s:%d", cfg.BridgeHost, cfg.BridgePort)
	}
	if err := cfg.ValidateDetector(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := strings.Join([]string{
		"MOTION_THRESHOLD=0.1",
		"RECORDING_DURATION=3s",
		"EVIDENCE_KIND=image",
		"HEADLESS=false",
		"TELEGRAM_CHAT_ID=42",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	for _, key := range []string{"MOTION_THRESHOLD", "RECORDING_DURATION", "EVIDENCE_KIND", "HEADLESS", "TELEGRAM_CHAT_ID"} {
		key := key
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	cfg := Load(path)
	if cfg.MotionThreshold != 0.1 {
		t.Errorf("Expected motion threshold 0.1, got %v", cfg.MotionThreshold)
	}
	if cfg.RecordingDuration != 3*time.Second {
		t.Errorf("Expected 3s duration, got %v", cfg.RecordingDuration)
	}
	if cfg.EvidenceKind != "image" || cfg.Headless {
		t.Errorf("Unexpected kind/headless %s %v", cfg.EvidenceKind, cfg.Headless)
	}
	if cfg.TelegramChatID != "42" {
		t.Errorf("Expected chat ID 42, got %s", cfg.TelegramChatID)
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("TEST_BAD_INT", "abc")
	t.Setenv("TEST_BAD_FLOAT", "x1")
	t.Setenv("TEST_BAD_DURATION", "5 minutes")
	t.Setenv("TEST_BAD_BOOL", "maybe")

	if getEnvInt("TEST_BAD_INT", 7) != 7 {
		t.Error("getEnvInt should fall back on parse error")
	}
	if getEnvFloat("TEST_BAD_FLOAT", 0.5) != 0.5 {
		t.Error("getEnvFloat should fall back on parse error")
	}
	if getEnvDuration("TEST_BAD_DURATION", time.Second) != time.Second {
		t.Error("getEnvDuration should fall back on parse error")
	}
	if !getEnvBool("TEST_BAD_BOOL", true) {
		t.Error("getEnvBool should fall back on parse error")
	}
}

func TestValidateDetector(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "kind", mutate: func(c *Config) { c.EvidenceKind = "gif" }, want: "EVIDENCE_KIND"},
		{name: "threshold", mutate: func(c *Config) { c.MotionThreshold = 1.5 }, want: "MOTION_THRESHOLD"},
		{name: "weight", mutate: func(c *Config) { c.AccumulateWeight = 0 }, want: "ACCUMULATE_WEIGHT"},
		{name: "encoder", mutate: func(c *Config) { c.ClipEncoder = "x264" }, want: "CLIP_ENCODER"},
		{name: "dispatch", mutate: func(c *Config) { c.DispatchMode = "later" }, want: "DISPATCH_MODE"},
		{name: "duration", mutate: func(c *Config) { c.RecordingDuration = 0 }, want: "RECORDING_DURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
			tt.mutate(cfg)
			err := cfg.ValidateDetector()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateBridge(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	cfg.TelegramBotToken = ""
	if err := cfg.ValidateBridge(); err == nil {
		t.Fatal("Expected error without bot token")
	}
	cfg.TelegramBotToken = "token"
	cfg.TelegramChatID = "1"
	if err := cfg.ValidateBridge(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
