package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/api"
	"motion-notifier-go/internal/config"
	"motion-notifier-go/internal/logging"
	"motion-notifier-go/internal/models"
	"motion-notifier-go/internal/rpc"
	"motion-notifier-go/internal/services/background"
	"motion-notifier-go/internal/services/capture"
	"motion-notifier-go/internal/services/cooldown"
	"motion-notifier-go/internal/services/encoder"
	"motion-notifier-go/internal/services/messaging"
	"motion-notifier-go/internal/services/motion"
	"motion-notifier-go/internal/services/notifier"
	"motion-notifier-go/internal/services/pipeline"
	"motion-notifier-go/internal/services/recorder"
)

func main() {
	envFile := flag.String("env", "", "path to an env file (defaults to .env)")
	interactive := flag.Bool("interactive", false, "wait for a background reset before detecting")
	flag.Parse()

	logging.Init()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg := config.Load(files...)
	logging.Configure(cfg)
	if *interactive {
		cfg.Headless = false
	}

	if err := cfg.ValidateDetector(); err != nil {
		log.Fatal().Err(err).Msg("Invalid detector configuration")
	}

	log.Info().
		Str("camera_id", cfg.CameraID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("evidence_kind", cfg.EvidenceKind).
		Bool("headless", cfg.Headless).
		Msg("Starting motion detector")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Motion detector failed")
		os.Exit(1)
	}
	log.Info().Msg("Motion detector shutdown complete")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := newRecorder(cfg)
	if err != nil {
		return err
	}

	dispatcher := notifier.NewClient(notifier.Config{
		URL:          cfg.NotifyURL,
		ImageTimeout: cfg.NotifyTimeoutImage,
		ClipTimeout:  cfg.NotifyTimeoutClip,
	})

	logger := logging.NewServiceLogger(cfg, "motion-detector")
	deps := pipeline.Deps{
		Model:      background.NewModel(cfg.AccumulateWeight),
		Scorer:     motion.NewScorer(cfg.PixelThreshold, cfg.MotionThreshold),
		Recorder:   rec,
		Gate:       cooldown.NewGate(cfg.NotificationCooldown),
		Dispatcher: dispatcher,
		Logger:     &logger,
	}

	var nats *messaging.Service
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg, "motion-detector-"+cfg.CameraID)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, events and remote control disabled")
		} else {
			nats = svc
			deps.Publisher = svc
		}
	}

	ctrl, err := pipeline.New(pipeline.Config{
		CameraID:     cfg.CameraID,
		Headless:     cfg.Headless,
		DispatchMode: pipeline.DispatchMode(cfg.DispatchMode),
	}, deps)
	if err != nil {
		return err
	}

	if nats != nil {
		_, err := nats.SubscribeControl(cfg.CameraID, func(cmd models.ControlCommand) {
			switch cmd.Command {
			case models.CommandResetBackground:
				ctrl.ResetBackground()
			default:
				log.Warn().Str("command", cmd.Command).Msg("Unknown control command")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to subscribe to control commands")
		}
	}

	var server *api.Server
	if cfg.ControlPort > 0 {
		server = api.NewServer(cfg, ctrl).Setup()
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("Control API failed")
			}
		}()
	}

	var health *rpc.HealthServer
	if cfg.GRPCPort > 0 {
		health = rpc.NewHealthServer(cfg.ControlHost, cfg.GRPCPort)
		if err := health.Listen(); err != nil {
			log.Warn().Err(err).Msg("gRPC health service disabled")
			health = nil
		} else {
			go func() {
				if err := health.Serve(); err != nil {
					log.Error().Err(err).Msg("gRPC health service failed")
				}
			}()
		}
	}

	source, err := capture.Open(capture.Config{
		CameraID: cfg.CameraID,
		Device:   cfg.CameraDevice,
		Width:    cfg.FrameWidth,
		Height:   cfg.FrameHeight,
		FPS:      cfg.FPS,
	})
	if err != nil {
		shutdown(cfg, server, health, nats)
		return err
	}
	defer source.Close()

	if health != nil {
		health.SetServing(true)
	}
	runErr := ctrl.Run(ctx, source)
	if health != nil {
		health.SetServing(false)
	}

	shutdown(cfg, server, health, nats)

	if errors.Is(runErr, models.ErrCaptureFailure) {
		log.Error().Err(runErr).Msg("Video source failed")
	}
	return runErr
}

func newRecorder(cfg *config.Config) (*recorder.Recorder, error) {
	kind := models.EvidenceKind(cfg.EvidenceKind)

	var (
		enc    recorder.Encoder
		suffix string
	)
	switch {
	case kind == models.EvidenceImage:
		enc = recorder.NewJPEGEncoder(cfg.JPEGQuality)
		suffix = "motion"
	case cfg.ClipEncoder == "ffmpeg":
		enc = recorder.NewFFmpegEncoder(cfg.FPS)
		suffix = "motion_clip"
	default:
		enc = encoder.NewVideoWriterEncoder(cfg.ClipCodec, cfg.FPS)
		suffix = "motion_clip"
	}

	return recorder.New(recorder.Config{
		CameraID:  cfg.CameraID,
		OutputDir: cfg.OutputDir,
		Kind:      kind,
		Duration:  cfg.RecordingDuration,
		Suffix:    suffix,
	}, enc)
}

func shutdown(cfg *config.Config, server *api.Server, health *rpc.HealthServer, nats *messaging.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Control API forced to shutdown")
		}
	}
	if health != nil {
		health.Stop()
	}
	if nats != nil {
		if err := nats.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("NATS shutdown incomplete")
		}
	}
}
