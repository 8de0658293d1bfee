package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atishaytuli/YURL/internal/auth"
	"github.com/atishaytuli/YURL/internal/blob"
	"github.com/atishaytuli/YURL/internal/bot"
	"github.com/atishaytuli/YURL/internal/cache"
	"github.com/atishaytuli/YURL/internal/config"
	"github.com/atishaytuli/YURL/internal/database"
	"github.com/atishaytuli/YURL/internal/geo"
	"github.com/atishaytuli/YURL/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return
	}
	slog.Info("Starting YURL service...", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("Could not connect to Postgres", "error", err)
		return
	}
	defer db.Close()

	cacheDB, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		slog.Error("Could not connect to Redis", "error", err)
		return
	}
	defer cacheDB.Close()

	analytics, err := database.ConnectClickHouse(cfg.ClickHouseAddr, cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseDB)
	if err != nil {
		slog.Error("Could not connect to ClickHouse", "error", err)
		return
	}
	defer analytics.Close()
	analytics.Start(ctx)

	blobs, err := blob.Connect(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		slog.Error("Could not connect to blob store", "error", err)
		return
	}

	var locator service.Locator
	if cfg.GeoDBPath != "" {
		maxmind, err := geo.OpenMaxMind(cfg.GeoDBPath)
		if err != nil {
			slog.Error("Could not open GeoIP database", "path", cfg.GeoDBPath, "error", err)
			return
		}
		defer maxmind.Close()
		locator = maxmind
	} else {
		locator = geo.NewWebAPI(cfg.GeoAPIURL)
	}

	sessions := auth.NewProvider(cfg.JWTSecret, cfg.SessionTTL)

	codes := service.NewCodeGenerator(db)
	registry := service.NewRegistry(db, blobs, cacheDB, codes, cfg.BaseURL)
	ingest := service.NewIngestor(analytics, locator)
	resolver := service.NewResolver(registry, ingest)

	server := service.NewServer(cfg.Port, registry, resolver, analytics, sessions)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(ctx) }()

	botErr := make(chan error, 1)
	if cfg.TelegramToken != "" {
		tgBot, err := bot.NewTelegramBot(cfg.TelegramToken, registry)
		if err != nil {
			slog.Error("Could not initialize bot", "error", err)
			return
		}
		go func() { botErr <- tgBot.Start(ctx) }()
	}

	slog.Info("Service is up and running!")

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server stopped with error", "error", err)
			stop()
		}
	case err := <-botErr:
		if err != nil {
			slog.Error("Bot stopped with error", "error", err)
			stop()
		}
	}

	slog.Info("Shutting down gracefully...")
}
