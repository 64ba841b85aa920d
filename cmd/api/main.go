package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stijnblommerde/restaurant-menu/internal/cache"
	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/database"
	"github.com/stijnblommerde/restaurant-menu/internal/handlers"
	"github.com/stijnblommerde/restaurant-menu/internal/jobs"
	"github.com/stijnblommerde/restaurant-menu/internal/log"
	"github.com/stijnblommerde/restaurant-menu/internal/mail"
	"github.com/stijnblommerde/restaurant-menu/internal/repository"
	"github.com/stijnblommerde/restaurant-menu/internal/server"
	"github.com/stijnblommerde/restaurant-menu/internal/service"
	"github.com/stijnblommerde/restaurant-menu/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, os.Getenv("RESTAURANTMENU_LOG_LEVEL"))

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	avatarStore, err := storage.NewAvatarStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init avatar store")
	}
	if err := avatarStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure avatar bucket failed")
	}

	userRepo := repository.NewUserRepository(dbPool)
	roleRepo := repository.NewRoleRepository(dbPool)
	outbox := mail.NewOutbox(redisClient, cfg.Redis.Stream)

	accounts := service.NewAccountService(userRepo, roleRepo, outbox, cfg, logger)
	if err := accounts.SeedRoles(ctx); err != nil {
		logger.Fatal().Err(err).Msg("role seeding failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, accounts, avatarStore, dbPool, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, cfg.Redis.Stream, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
