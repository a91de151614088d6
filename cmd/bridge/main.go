package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"motion-notifier-go/internal/bridge"
	"motion-notifier-go/internal/config"
	"motion-notifier-go/internal/logging"
	"motion-notifier-go/internal/services/messaging"
)

func main() {
	envFile := flag.String("env", "", "path to an env file (defaults to .env)")
	flag.Parse()

	logging.Init()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg := config.Load(files...)
	logging.Configure(cfg)

	if err := cfg.ValidateBridge(); err != nil {
		log.Fatal().Err(err).Msg("Invalid bridge configuration")
	}

	log.Info().
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("host", cfg.BridgeHost).
		Int("port", cfg.BridgePort).
		Str("chat_id", cfg.TelegramChatID).
		Msg("Starting notification bridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := bridge.NewTelegramClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.BridgeUploadTimeout)
	forwarder := bridge.NewForwarder(client, cfg.TelegramRetryEvery)
	go forwarder.Run(ctx)

	var (
		nats      *messaging.Service
		publisher bridge.DeliveryPublisher
	)
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg, "notification-bridge")
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, delivery reports disabled")
		} else {
			nats = svc
			publisher = svc
		}
	}

	server := bridge.NewServer(cfg, forwarder, publisher)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Bridge server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Bridge forced to shutdown")
	}
	if nats != nil {
		if err := nats.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("NATS shutdown incomplete")
		}
	}
	log.Info().Msg("Bridge shutdown complete")
}
