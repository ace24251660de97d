package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/analysis"
	"github.com/Kamar-Folarin/github-ma-intel/internal/api"
	"github.com/Kamar-Folarin/github-ma-intel/internal/archive"
	"github.com/Kamar-Folarin/github-ma-intel/internal/collector"
	"github.com/Kamar-Folarin/github-ma-intel/internal/config"
	"github.com/Kamar-Folarin/github-ma-intel/internal/github"
	"github.com/Kamar-Folarin/github-ma-intel/internal/history"
	"github.com/Kamar-Folarin/github-ma-intel/internal/prediction"
	"github.com/Kamar-Folarin/github-ma-intel/internal/refresh"

	_ "github.com/Kamar-Folarin/github-ma-intel/docs"
)

// @title GitHub M&A Intelligence API
// @version 1.0
// @description Repository snapshots, anomaly scores and acquisition predictions derived from public GitHub activity
// @host localhost:8080
// @BasePath /api
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN not set, using the unauthenticated quota")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	// Open with retry logic, the database may still be starting
	var store history.Store
	if err := retry(3, 5*time.Second, func() error {
		var err error
		store, err = history.Open(ctx, cfg.DBConnectionString, cfg.HistoryPath(), logger)
		return err
	}); err != nil {
		logger.Fatalf("Failed to open history store after retries: %v", err)
	}
	defer store.Close()

	cycles, err := archive.New(cfg.ArchiveDir())
	if err != nil {
		logger.Fatalf("Failed to open archive: %v", err)
	}

	// Pipeline
	rl := cfg.GitHub.RateLimit
	client := github.NewClient(cfg.GitHub.Token, logger,
		github.WithBaseURL(cfg.GitHub.APIBaseURL),
		github.WithRetryConfig(rl.MaxRetries, rl.InitialBackoff, rl.MaxBackoff),
		github.WithMaxRateLimitWait(rl.MaxRateLimitWait),
		github.WithRequestTimeout(rl.RequestTimeout),
	)

	var collectorOpts []collector.Option
	if last, err := cycles.LatestSnapshot(); err != nil {
		logger.WithError(err).Warn("Failed to read latest archived snapshot")
	} else if last != nil {
		collectorOpts = append(collectorOpts, collector.WithLastTimestamp(last.Timestamp))
	}
	col := collector.New(client, cfg.Collector, logger, collectorOpts...)

	analyzer := analysis.New(store, cfg.Analysis, logger)
	if err := analyzer.TrainPredictor(ctx, prediction.NewFileLabelSource(cfg.Analysis.LabelsPath)); err != nil {
		logger.WithError(err).Warn("Acquisition predictor left untrained")
	}

	svc := refresh.New(col, analyzer, cfg.Cache, cfg.Scheduler, logger,
		refresh.WithHistory(store),
		refresh.WithArchive(cycles),
		refresh.WithSeedRuns(cfg.Analysis.BaselineSeedRun),
	)
	if err := svc.Start(ctx); err != nil {
		logger.Fatalf("Failed to start refresh scheduler: %v", err)
	}

	auth := api.NewAuthenticator(cfg.Auth)
	if auth == nil {
		logger.Info("Admin login disabled, set ADMIN_PASSWORD and JWT_SECRET_KEY to enable it")
	}
	handler := api.NewHandler(svc, logger,
		api.WithAdminToken(cfg.AdminToken),
		api.WithAuthenticator(auth),
		api.WithQuotaReporter(client),
	)
	router := api.SetupRouter(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Cache.ComputeTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	svc.Stop()
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
