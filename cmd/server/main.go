package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kdimtricp/cvat-api/internal/api"
	"github.com/kdimtricp/cvat-api/internal/auth"
	"github.com/kdimtricp/cvat-api/internal/config"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/internal/storage"
	"github.com/kdimtricp/cvat-api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	frames, err := storage.NewLocalStorage(cfg.Storage.FramesDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize frame storage")
	}

	db, err := database.NewDB(database.ConfigFrom(cfg.Database))
	if err != nil {
		logging.Fatal().Err(err).Str("type", cfg.Database.Type).Msg("Failed to initialize database")
	}
	defer db.Close()

	if cfg.Database.Migrate {
		logging.Info().Str("type", db.Type()).Msg("Running database migrations")
		if err := db.RunMigrations(); err != nil {
			logging.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	tokens, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	service := tasks.NewService(
		database.NewTaskRepository(db),
		database.NewAnnotationRepository(db),
		frames,
	)

	app := &api.App{
		Tasks:             service,
		Users:             database.NewUserRepository(db),
		Tokens:            tokens,
		DB:                db,
		APISecret:         cfg.Security.APISecret,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	}
	if app.APISecret == "" {
		logging.Warn().Msg("API_SECRET not set, only token authentication is available")
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info().
			Int("port", cfg.Server.Port).
			Str("database", cfg.Database.Type).
			Str("frames_dir", cfg.Storage.FramesDir).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
