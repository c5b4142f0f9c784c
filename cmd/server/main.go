package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/config"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/dedup"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/downloader"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/events"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/httpapp"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/media"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/queue"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/storage"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tools"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.EnsureDir(cfg.DownloadsDir); err != nil {
		appLogger.Error("Failed to create downloads directory", "error", err)
		os.Exit(1)
	}

	// External tools; missing binaries are reported but do not prevent
	// startup. Jobs fail fast until they are installed.
	provisioner := tools.NewProvisioner(cfg)
	if err := provisioner.EnsureInstalled(); err != nil {
		appLogger.Warn("External tools unavailable, downloads will fail", "error", err)
	}

	settingsRepo := store.NewSettingsRepo(db)

	// Audio format can be overridden from settings
	audioFormat := cfg.AudioFormat
	if saved, err := settingsRepo.Get(store.SettingAudioFormat); err == nil && saved != "" {
		audioFormat = saved
	}

	// Realtime updates
	hub := events.NewHub(appLogger)
	go hub.Run()

	// Core services
	fetcher := media.NewFetcher(provisioner)
	dedupService := dedup.NewService(db, appLogger, cfg.DownloadsDir)
	dl := downloader.New(db, appLogger, hub, fetcher, provisioner, dedupService, cfg.DownloadsDir, audioFormat)
	manager := queue.NewManager(db, appLogger, hub, dl, cfg.MaxConcurrent)
	defer manager.Stop()

	// Crash recovery and retention
	recovery := queue.NewRecoveryService(db, appLogger, manager)
	if err := recovery.Run(); err != nil {
		appLogger.Error("Queue recovery failed", "error", err)
		os.Exit(1)
	}
	if _, err := recovery.CleanupFinishedJobs(); err != nil {
		appLogger.Warn("Failed to prune old jobs", "error", err)
	}

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(manager, db, settingsRepo, dedupService, provisioner, hub, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
