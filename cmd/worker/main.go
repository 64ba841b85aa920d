package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stijnblommerde/restaurant-menu/internal/cache"
	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/log"
	"github.com/stijnblommerde/restaurant-menu/internal/mail"
	"github.com/stijnblommerde/restaurant-menu/internal/queue"
	"github.com/stijnblommerde/restaurant-menu/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, os.Getenv("RESTAURANTMENU_LOG_LEVEL"))

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	sender := mail.NewSMTPSender(cfg.Mail)
	processor := tasks.NewProcessor(sender, client, cfg.Redis.Stream, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Queues.ClaimInterval,
		logger,
		processor,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	logger.Info().
		Str("stream", cfg.Redis.Stream).
		Str("group", cfg.Redis.Group).
		Msg("mail worker starting")

	if err := consumer.Start(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("consumer stopped")
	}

	logger.Info().Msg("worker exited cleanly")
}
