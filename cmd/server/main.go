package main

// @title           Wish Service API
// @version         1.0
// @description     A RESTful API and realtime websocket service for wishes
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wish-service/internal/adapters/kafka"
	"wish-service/internal/api/routes"
	"wish-service/internal/config"
	"wish-service/internal/database"
	"wish-service/internal/realtime"
	"wish-service/internal/repositories/postgres"
	"wish-service/internal/services"
)

const wishExpiryInterval = time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Starting wish server")

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisService := services.NewRedisService(redisClient)

	// Realtime core with the Redis presence mirror
	core := realtime.NewCore(
		realtime.WithPresenceSink(redisService),
		realtime.WithLogger(logger),
	)

	// Cross-instance event bridge over Redis pub/sub
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	bridge := realtime.NewBridge(core, redisClient, logger)
	go bridge.Run(bridgeCtx)

	var publisher *kafka.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		publisher = kafka.NewEventPublisher(producer, cfg.Kafka.Topic)
		defer publisher.Close()
	}

	var storage *database.MinIOClient
	if cfg.MinIO.Enabled {
		storage, err = database.NewMinIOClient(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket,
		)
		if err != nil {
			slog.Error("Failed to connect to MinIO", "error", err)
			os.Exit(1)
		}
	}

	router := routes.NewRouter(
		core,
		redisService,
		db,
		cfg.JWT,
		publisher,
		storage,
		logger,
	)
	router.SetupRoutes()

	// Sweep overdue wishes in the background
	wishRepo := postgres.NewWishRepository(db)
	wishService := services.NewWishService(wishRepo, core, publisher)
	expiryCtx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go runWishExpiry(expiryCtx, wishService)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopExpiry()
	stopBridge()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}

func runWishExpiry(ctx context.Context, wishService *services.WishService) {
	ticker := time.NewTicker(wishExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wishService.ExpireOverdue(); err != nil {
				slog.Warn("Wish expiry sweep failed", "error", err)
			}
		}
	}
}
