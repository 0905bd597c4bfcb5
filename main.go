package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/api"
	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/config"
	"github.com/isdelr/taskflow-be/internal/database"
	"github.com/isdelr/taskflow-be/internal/logger"
	"github.com/isdelr/taskflow-be/internal/monitoring"
	"github.com/isdelr/taskflow-be/internal/services"
	"github.com/isdelr/taskflow-be/internal/storage"
	"github.com/isdelr/taskflow-be/internal/store"
	"github.com/isdelr/taskflow-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "replace_this_with_secure_secret" {
		log.Warn().Msg("JWT_SECRET is the built-in default; set a real secret outside development")
	}

	// Set up persistence
	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer st.Close()

	blobs, err := openBlobStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.BlobDriver).Msg("Failed to initialize attachment storage")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(st, cfg.BcryptCost)
	authService := services.NewAuthService(userService, tokens, hub)
	taskService := services.NewTaskService(st, blobs, hub)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(hub, cfg.StatsInterval)
	go statUpdater.Run()

	// Set up the orphaned attachment janitor
	janitor := monitoring.NewJanitor(st, blobs, cfg.JanitorGrace)
	if err := janitor.Start(cfg.JanitorSchedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.JanitorSchedule).Msg("Invalid janitor schedule")
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Config: cfg,
		Hub:    hub,
		Tokens: tokens,
		Users:  userService,
		Auth:   authService,
		Tasks:  taskService,
		Stats:  statUpdater,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop() // Stop the monitoring service
	janitor.Stop()     // Stop the scheduler

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

// openStore selects the task and user store named by STORE_DRIVER.
func openStore(cfg *config.Config) (store.Store, error) {
	var dialect database.Dialect
	var dsn string
	switch cfg.StoreDriver {
	case "memory":
		log.Info().Msg("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	case "sqlite":
		dialect, dsn = database.SQLite, cfg.DatabasePath
	case "postgres":
		dialect, dsn = database.Postgres, cfg.DatabaseURL
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	db, err := database.New(dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store.NewSQLStore(db, dialect), nil
}

// openBlobStore selects the attachment storage named by BLOB_DRIVER.
func openBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.BlobDriver {
	case "local":
		local, err := storage.NewLocalStore(cfg.UploadsPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", local.Dir()).Msg("Storing attachments on local disk")
		return local, nil
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Storing attachments in S3")
		return s3Store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}
