/*
Package main is the entry point for the GeoChat server.

It is responsible for loading configuration, initializing the global logging
system, selecting and connecting the backing document store, wiring the domain
services, setting up the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"geochat/internal/app/chat"
	"geochat/internal/app/location"
	"geochat/internal/app/storage"
	"geochat/internal/app/store"
	"geochat/internal/configs"
	"geochat/internal/handler"
	"geochat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_backend", cfg.StoreBackend).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the backing document store
	client, err := newStoreClient(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize document store")
	}

	// Wire the domain services
	deps := &handler.AppDeps{
		Config:    cfg,
		Store:     client,
		Directory: chat.NewDirectory(client),
		Channel:   chat.NewChannel(client),
		Presence:  chat.NewPresence(client),
		Typing:    chat.NewTyping(client),
		Reactions: chat.NewReactions(client),
		Location:  location.NewService(client),
		Locator: location.FixedProvider{
			Configured: cfg.HasDefaultLocation,
			Coordinates: location.Coordinates{
				Latitude:  cfg.DefaultLatitude,
				Longitude: cfg.DefaultLongitude,
			},
		},
	}

	// Attachment presigning is optional; without a bucket the endpoints stay unmounted.
	if cfg.S3BucketName != "" {
		storageService, err := storage.NewStorageService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize attachment storage")
		}
		deps.StorageService = storageService
	} else {
		logx.Info("S3_BUCKET_NAME not set. Attachment presign endpoints disabled.")
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("GeoChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	if err := client.Close(); err != nil {
		logx.Error(err, "Document store close error")
	}

	logx.Info("Server gracefully stopped.")
}

// newStoreClient builds the store.Client selected by STORE_BACKEND.
func newStoreClient(cfg *configs.AppConfig) (store.Client, error) {
	switch cfg.StoreBackend {
	case configs.StoreBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return store.NewRedisStore(rdb, "geochat:"), nil

	case configs.StoreBackendPostgres:
		return store.NewPGStore(cfg.DatabaseDSN)

	default:
		return store.NewMemStore(), nil
	}
}
