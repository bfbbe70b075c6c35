package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/thumbnail-creator/internal/config"
	"github.com/phambaophuc/thumbnail-creator/internal/http/handlers"
	"github.com/phambaophuc/thumbnail-creator/internal/http/routes"
	"github.com/phambaophuc/thumbnail-creator/internal/services/batch"
	"github.com/phambaophuc/thumbnail-creator/internal/services/metrics"
	"github.com/phambaophuc/thumbnail-creator/internal/services/processor"
	_ "github.com/phambaophuc/thumbnail-creator/internal/services/processor/webpenc"
	"github.com/phambaophuc/thumbnail-creator/internal/services/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	gin.SetMode(cfg.Server.Mode)

	defaults, err := cfg.Thumbnail.Settings()
	if err != nil {
		logger.Fatal("Invalid default thumbnail settings", zap.Error(err))
	}

	filter, err := processor.ParseFilter(cfg.Thumbnail.Filter)
	if err != nil {
		logger.Fatal("Invalid resampling filter", zap.Error(err))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize services
	imageProcessor := processor.NewImageProcessor(processor.ProcessorOptions{
		Filter:        filter,
		MaxSourceSize: cfg.Storage.MaxFileSize,
		MaxPixels:     cfg.Thumbnail.MaxPixels,
	})
	logger.Info("Thumbnail encoders available", zap.Any("formats", processor.RegisteredFormats()))

	batchProcessor := batch.NewProcessor(imageProcessor, logger, m, batch.Options{
		Workers:      cfg.Thumbnail.Workers,
		MaxDimension: cfg.Thumbnail.MaxDimension,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore := newSessionStore(ctx, cfg, logger)
	defer closeStore()

	sessions := session.NewService(store, batchProcessor, logger, m, session.Options{
		Defaults:     defaults,
		MaxDimension: cfg.Thumbnail.MaxDimension,
	})

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(sessions, imageProcessor, defaults, logger, cfg)

	router := routes.NewRouter(imageHandler, logger, registry, cfg.Server.AllowedOrigins)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newSessionStore picks the session backend from config. The memory store is
// swept in the background until ctx is done.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, func()) {
	switch cfg.Session.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, sessions will fail until it is", zap.Error(err))
		}
		logger.Info("Using redis session store", zap.String("addr", cfg.Redis.Addr))
		return session.NewRedisStore(client, cfg.Session.TTL), func() { client.Close() }

	case "memory", "":
		store := session.NewMemoryStore(cfg.Session.TTL)
		go sweep(ctx, store, cfg.Session.TTL, logger)
		logger.Info("Using in-memory session store", zap.Duration("ttl", cfg.Session.TTL))
		return store, func() {}

	default:
		logger.Fatal("Unknown session store", zap.String("store", cfg.Session.Store))
		return nil, nil
	}
}

func sweep(ctx context.Context, store *session.MemoryStore, ttl time.Duration, logger *zap.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Cleanup(ctx); removed > 0 {
				logger.Info("Expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
