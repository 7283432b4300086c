package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/ratinggame/internal/api"
	"github.com/mcoot/ratinggame/internal/config"
	"github.com/mcoot/ratinggame/internal/factory"
	s3host "github.com/mcoot/ratinggame/internal/imagehost/s3"
	"github.com/mcoot/ratinggame/internal/storage/postgres"
	redisstorage "github.com/mcoot/ratinggame/internal/storage/redis"
)

// pruneInterval is how often idle rate limiter windows are evicted
const pruneInterval = time.Minute

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// JSON logs in production, readable debug logs elsewhere
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Create application factory
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close connections", slog.String("error", err.Error()))
		}
	}()

	go app.RunPruner(ctx, pruneInterval)

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Router(cfg.AllowedOrigins), serverConfig, logger)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("env", cfg.AppEnv),
		slog.String("storage", cfg.StorageType),
		slog.String("tracker", cfg.TrackerType),
		slog.String("image_host", cfg.ImageHost),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	logger.Info("server stopped")
	if exitCode != 0 {
		cancel()
		_ = app.Close()
		os.Exit(exitCode)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func factoryConfig(cfg config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:        logger,
		StorageType:   cfg.StorageType,
		TrackerType:   cfg.TrackerType,
		ImageHost:     cfg.ImageHost,
		JWTSecret:     cfg.JWTSecret,
		ConsoleAudit:  !cfg.IsProduction(),
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}

	if cfg.StorageType == factory.StorageTypeRedis || cfg.TrackerType == factory.TrackerTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		fc.RedisConfig = &redisCfg
	}
	if cfg.StorageType == factory.StorageTypePostgres {
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.DatabaseURL
		fc.PostgresConfig = &pgCfg
	}
	if cfg.ImageHost == factory.ImageHostS3 {
		fc.S3Config = &s3host.Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			PublicURL:    cfg.S3.PublicURL,
			UsePathStyle: cfg.S3.UsePathStyle,
		}
	}
	return fc
}
