package messaging

import (
	"testing"

	"motion-notifier-go/internal/models"
)

func TestEventSubject(t *testing.T) {
	if got := EventSubject("motion.events", "cam-0"); got != "motion.events.cam-0" {
		t.Errorf("Unexpected subject %s", got)
	}
}

func TestDecodeControl(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{name: "reset", payload: `{"command":"reset_background"}`, want: models.CommandResetBackground},
		{name: "unknown command passes through", payload: `{"command":"reboot"}`, want: "reboot"},
		{name: "empty", payload: `{}`, wantErr: true},
		{name: "garbage", payload: `reset`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeControl([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cmd.Command != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, cmd.Command)
			}
		})
	}
}
