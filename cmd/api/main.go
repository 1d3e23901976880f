package main

import (
	"context"
	"log"
	"os"
	"time"

	"media-relay/config"
	"media-relay/internal/admin"
	"media-relay/internal/events"
	"media-relay/internal/handler"
	"media-relay/internal/queue"
	"media-relay/internal/redis"
	"media-relay/internal/relay"
	"media-relay/internal/server"
	"media-relay/internal/services"
	"media-relay/internal/storage"
	"media-relay/internal/websocket"
	"media-relay/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.NewWithFile(mode, cfg.LogPath)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		log.Fatalf("Failed to create staging directory: %v", err)
	}

	store, err := admin.NewStore(admin.Config{
		Path:          cfg.AdminStorePath,
		WarnThreshold: cfg.WarnThreshold,
		AuditLimit:    cfg.AuditLogLimit,
	}, l)
	if err != nil {
		log.Fatalf("Failed to open admin store: %v", err)
	}
	defer store.Close()

	s3Client, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PublicBase: cfg.S3PublicBase,
		PresignTTL: time.Duration(cfg.PresignTTLMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	var responder relay.Responder
	if cfg.ReplyWebhookURL != "" {
		responder = relay.NewWebhookResponder(cfg.ReplyWebhookURL)
	} else {
		l.Warnf("REPLY_WEBHOOK_URL not set, chat replies will only be logged")
		responder = relay.NopResponder{Log: l}
	}

	rly := relay.New(relay.Config{
		StagingDir:   cfg.StagingDir,
		MaxFileBytes: int64(cfg.MaxFileSizeMB) << 20,
		FloodPerMin:  cfg.FloodPerMin,
		FloodBurst:   cfg.FloodBurst,
	}, responder, store, l)

	q := queue.New(queue.Config{
		Concurrency:      cfg.QueueConcurrency,
		MaxQueue:         cfg.QueueMaxLength,
		MaxAttempts:      cfg.QueueMaxAttempts,
		ProgressInterval: time.Duration(cfg.ProgressIntervalMS) * time.Millisecond,
		EventBuffer:      cfg.EventBufferSize,
	}, s3Client, rly, l)
	q.Start(ctx)
	rly.AttachQueue(q)

	go q.RunHousekeeping(ctx,
		time.Duration(cfg.HousekeepingMin)*time.Minute,
		time.Duration(cfg.DuplicateTTLHours)*time.Hour)
	go rly.RunStagingJanitor(ctx, time.Hour, 24*time.Hour)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	var publisher events.Publisher
	if cfg.RedisHost != "" {
		client, err := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		publisher = events.NewRedisPublisher(client)
	}

	observer := events.NewObserver(q, hub, publisher, l, 5*time.Second)
	go observer.Run(ctx)

	authService, err := services.NewAuthService(cfg)
	if err != nil {
		log.Fatalf("Failed to set up auth: %v", err)
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(cfg.StagingDir, s3Client),
		Ingest: handler.NewIngestHandler(rly),
		Queue:  handler.NewQueueHandler(q),
		Admin:  handler.NewAdminHandler(store),
		WS:     websocket.NewHandler(authService, hub),
	}, authService)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
