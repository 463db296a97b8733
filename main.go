package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Igor555433/evia-ecosystem/config"
	"github.com/Igor555433/evia-ecosystem/handler"
	"github.com/Igor555433/evia-ecosystem/middleware"
	"github.com/Igor555433/evia-ecosystem/pkg/logger"
	"github.com/Igor555433/evia-ecosystem/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "mode", cfg.Pipeline.Mode)

	if err := os.MkdirAll(cfg.Pipeline.RunsDir, 0o755); err != nil {
		slog.Error("failed to create runs directory", "error", err)
		os.Exit(1)
	}

	// Pipeline wiring: settings, prompt store, renderer, sink root
	settings := service.NewSettings(&cfg.Pipeline)
	prompts := service.NewPromptStore(cfg.Pipeline.PromptsDir, settings.PromptFiles)
	renderer := service.NewDocumentRenderer(cfg.Pipeline.DisableDocx)
	pipeline := service.NewPipeline(settings, prompts, renderer, cfg.Pipeline.RunsDir)

	// Evidence uploads go to object storage when configured, local disk otherwise
	var evidenceStore service.EvidenceStore
	if cfg.Minio.Endpoint != "" {
		minioStore, err := service.NewMinioEvidenceStore(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize MINIO evidence store", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure MINIO bucket", "error", err)
			os.Exit(1)
		}
		evidenceStore = minioStore
		slog.Info("evidence store initialized", "backend", "minio", "bucket", cfg.Minio.Bucket)
	} else {
		evidenceStore = service.NewLocalEvidenceStore(filepath.Join(cfg.Pipeline.RunsDir, "_uploads"))
		slog.Info("evidence store initialized", "backend", "local")
	}

	runStore := service.NewRunStore(cfg.Store.MaxRuns)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	runHandler := handler.NewRunHandler(pipeline, evidenceStore, runStore)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(100, time.Minute))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/runs", runHandler.Generate)
		protected.GET("/runs", runHandler.List)
		protected.GET("/runs/:id", runHandler.Get)
		protected.GET("/runs/:id/bundle", runHandler.DownloadBundle)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
