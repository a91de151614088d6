package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/config"
	"motion-notifier-go/internal/models"
)

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config, name string) (*Service, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DrainTimeout(cfg.NatsDrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// EventSubject returns the subject pipeline events for a camera are published on
func EventSubject(prefix, cameraID string) string {
	return fmt.Sprintf("%s.%s", prefix, cameraID)
}

// PublishEvent publishes a pipeline event on <events_subject>.<camera_id>
func (s *Service) PublishEvent(event *models.DetectionEvent) error {
	return s.Publish(EventSubject(s.cfg.EventsSubject, event.CameraID), event)
}

// PublishDelivery reports a bridge delivery result
func (s *Service) PublishDelivery(report *models.DeliveryReport) error {
	return s.Publish(s.cfg.DeliveriesSubject, report)
}

// SubscribeControl routes control commands for the camera to the handler
func (s *Service) SubscribeControl(cameraID string, handler func(models.ControlCommand)) (*nats.Subscription, error) {
	subject := EventSubject(s.cfg.ControlSubject, cameraID)
	sub, err := s.Subscribe(subject, func(data []byte) {
		cmd, err := DecodeControl(data)
		if err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("Ignoring malformed control command")
			return
		}
		handler(cmd)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("subject", subject).Msg("Subscribed to control commands")
	return sub, nil
}

// DecodeControl parses a control command payload
func DecodeControl(data []byte) (models.ControlCommand, error) {
	var cmd models.ControlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("invalid control payload: %w", err)
	}
	if cmd.Command == "" {
		return cmd, fmt.Errorf("control payload has no command")
	}
	return cmd, nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}

	// Try graceful drain with timeout, fallback to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}

	deadline := time.Now().Add(s.cfg.NatsDrainTimeout)
	for !s.conn.IsClosed() {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			s.conn.Close()
			break
		}
	}
	return nil
}
