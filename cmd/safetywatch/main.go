package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/safetywatch/internal/api"
	"github.com/mr1hm/safetywatch/internal/config"
	"github.com/mr1hm/safetywatch/internal/feed"
	internalgrpc "github.com/mr1hm/safetywatch/internal/grpc"
	"github.com/mr1hm/safetywatch/internal/ingestion"
	"github.com/mr1hm/safetywatch/internal/logging"
	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/notify"
	"github.com/mr1hm/safetywatch/internal/repository"
	"github.com/mr1hm/safetywatch/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logCloser := logging.Setup(cfg.Logging)
	defer logCloser.Close()

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "db_driver", cfg.DB.Driver)

	store, err := repository.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notifiers
	var (
		notifiers []notify.Notifier
		welcomer  service.Welcomer
	)
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.RatePerSecond)
		if err != nil {
			logging.Fatalf("Failed to initialize telegram bot: %v", err)
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if username, err := tg.Ping(pingCtx); err != nil {
			slog.Warn("telegram bot unreachable at startup", "error", err)
		} else {
			slog.Info("telegram bot ready", "username", username)
		}
		pingCancel()
		notifiers = append(notifiers, tg)
		welcomer = tg
	} else {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, user notifications disabled")
	}
	if len(cfg.Notify.URLs) > 0 {
		op, err := notify.NewOperator(cfg.Notify.URLs, cfg.Notify.Timeout)
		if err != nil {
			logging.Fatalf("Failed to initialize operator notifications: %v", err)
		}
		notifiers = append(notifiers, op)
	}

	dispatcher := notify.NewDispatcher(notifiers, notify.DispatcherConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, m)
	dispatcher.Start(ctx)

	liveFeed := feed.New(feed.NewSnapshotter(store, feed.SnapshotConfig{
		AlertLimit: cfg.Feed.AlertLimit,
		CacheTTL:   cfg.Feed.CacheTTL,
	}, m), cfg.Feed.Interval)

	services := api.Services{
		Alerts: service.NewAlertService(store, store,
			service.WithDispatcher(dispatcher),
			service.WithRefresher(liveFeed),
			service.WithMetrics(m),
		),
		Users:     service.NewUserService(store, welcomer),
		Contacts:  service.NewContactService(store, store),
		Rules:     service.NewRuleService(store, store),
		Locations: service.NewLocationService(store, store, liveFeed),
	}

	// Start Kafka ingestion
	var consumer *ingestion.Consumer
	if cfg.Kafka.Enabled {
		consumer = ingestion.NewConsumer(ingestion.NewKafkaReader(cfg.Kafka), services.Alerts, services.Locations, m)
		consumer.Start(ctx)
		slog.Info("kafka ingestion enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Start gRPC server
	var grpcServer *internalgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = internalgrpc.NewServer(services.Alerts, services.Users, liveFeed)
		go func() {
			grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
			if err := grpcServer.Start(grpcAddr); err != nil {
				logging.Fatalf("gRPC server error: %v", err)
			}
		}()
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogging(m))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(services, liveFeed, m)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			slog.Error("kafka reader close error", "error", err)
		}
	}
	dispatcher.Stop()
	liveFeed.Close() // ends every snapshot stream
	if grpcServer != nil {
		grpcServer.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
