package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/config"
	"github.com/petermazzocco/findit/internal/database"
	"github.com/petermazzocco/findit/internal/handlers"
	"github.com/petermazzocco/findit/internal/service"
	"github.com/petermazzocco/findit/internal/store"
	"github.com/petermazzocco/findit/internal/upload"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	// Initialize configuration from .env and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Error loading config")
	}
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to auto migrate models")
	}
	if err := database.SeedCategories(ctx, db); err != nil {
		log.WithError(err).Fatal("Failed to seed categories")
	}
	s := store.New(db)

	// Image storage
	images, err := newImageStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up image storage")
	}
	uploads := upload.NewValidator(images, cfg.AllowedExtensions, cfg.MaxUploadSize, log)

	// Session store
	sessionStore, err := auth.NewFilesystemStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up session store")
	}
	sessions := auth.NewSessions(sessionStore, cfg.SessionName, log)

	// OAUTH
	providers := auth.SetupOAuth(cfg, sessionStore)
	if len(providers) > 0 {
		log.WithField("providers", providers).Info("OAuth sign-in enabled")
	}

	h := handlers.NewHandler(handlers.Deps{
		Accounts:   service.NewAccounts(s, log),
		Items:      service.NewItems(s, uploads, log),
		Moderation: service.NewModeration(s, uploads, log),
		Sessions:   sessions,
		Users:      s,
		Images:     images,
		Log:        log,
		MaxBody:    cfg.MaxUploadSize,
	})
	router := handlers.NewRouter(h, handlers.RouterOptions{
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		OAuthEnabled:  len(providers) > 0,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.AppEnv}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newImageStorage(ctx context.Context, cfg config.Config) (upload.Storage, error) {
	if cfg.ImageBackend == config.ImageBackendS3 {
		client, err := upload.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return upload.NewS3Storage(client, cfg.BucketName), nil
	}
	return upload.NewLocalStorage(cfg.UploadDir)
}
