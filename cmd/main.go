/*
Package main is the entry point for the roomchat server.

It loads configuration, initializes the global logger, opens the configured
store, builds the realtime core and the HTTP router, and shuts everything
down in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roomchat/internal/app/chat"
	"roomchat/internal/app/db"
	"roomchat/internal/app/litedb"
	"roomchat/internal/app/storage"
	"roomchat/internal/app/store"
	"roomchat/internal/app/store/memstore"
	"roomchat/internal/configs"
	"roomchat/internal/handler"
	"roomchat/internal/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

func openStore(ctx context.Context, cfg *configs.AppConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case configs.StoreMemory:
		return memstore.New(), nil
	case configs.StoreSQLite:
		return litedb.Open(cfg.SQLitePath, cfg.IsDevelopment())
	case configs.StorePostgres:
		return db.Open(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func newArchiver(cfg *configs.AppConfig) (chat.Archiver, error) {
	if !cfg.ArchiveEnabled() {
		logx.Info("Transcript archiving disabled: S3 is not configured")
		return nil, nil
	}

	service, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	return storage.NewTranscriptArchiver(service, storage.DefaultDownloadExpiry), nil
}

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("store_driver", cfg.StoreDriver).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("archive_enabled", cfg.ArchiveEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open store", "driver", cfg.StoreDriver)
	}

	archiver, err := newArchiver(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize archive storage")
	}

	core := chat.NewCore(st, chat.Options{
		JWTSecret:       cfg.JWTSecret,
		SendQueueSize:   cfg.SendQueueSize,
		MaxContentBytes: cfg.MaxContentBytes,
		Archiver:        archiver,
	})

	router, stopLimiters := handler.Router(&handler.AppDeps{
		Core:   core,
		Store:  st,
		Config: cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info(fmt.Sprintf("roomchat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown; the core
		// closes them.
		err := server.Shutdown(shutdownCtx)
		core.Shutdown()
		stopLimiters()
		return err
	})

	if err := g.Wait(); err != nil {
		logx.Error(err, "Server stopped with error")
	}

	if err := st.Close(); err != nil {
		logx.Error(err, "Failed to close store")
	}

	logx.Info("Server gracefully stopped.")
}
