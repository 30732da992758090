package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caffe-cappuccino/dl/pkg/server"
	"github.com/caffe-cappuccino/dl/pkg/service"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

var (
	// Server configuration flags
	port = flag.Int("port", 8080, "HTTP server port")

	// Model backend configuration
	mtEngine     = flag.String("mt-engine", "opusmt", "Model backend: opusmt, local or libretranslate")
	mtURL        = flag.String("mt-url", "", "Base URL for the model backend API (HTTP engines)")
	mtToken      = flag.String("mt-token", "", "Bearer token for the model backend (defaults to $MT_API_TOKEN)")
	pythonPath   = flag.String("python", "", "Python interpreter for the local engine")
	workerScript = flag.String("worker-script", "", "Worker script path for the local engine")

	// Job housekeeping
	jobMaxAge = flag.Duration("job-max-age", 1*time.Hour, "How long finished jobs are kept")

	// Logging configuration
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	apiToken := *mtToken
	if apiToken == "" {
		apiToken = os.Getenv("MT_API_TOKEN")
	}

	logger.WithFields(logrus.Fields{
		"port":      *port,
		"mt_engine": *mtEngine,
		"mt_url":    *mtURL,
		"log_level": level.String(),
	}).Info("Starting translation server")

	// Parse model backend type
	engineType, err := translate.ParseEngineType(*mtEngine)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse model backend type")
	}

	// Create backend instance
	backend, err := translate.NewBackend(translate.Config{
		Engine:       engineType,
		BaseURL:      *mtURL,
		APIToken:     apiToken,
		PythonPath:   *pythonPath,
		WorkerScript: *workerScript,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create model backend")
	}

	// Verify the backend is reachable. Not fatal: the first model load
	// will surface the real error if the backend stays down.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Checking model backend health...")
	if err := backend.CheckHealth(ctx); err != nil {
		logger.WithError(err).Warn("Backend health check failed, but continuing anyway")
		logger.Warn("Server will start, but translation requests may fail until the backend is ready")
	} else {
		logger.Info("Backend health check passed")
	}

	// Wire up the service: one process-wide model cache, lazily filled.
	cache := translate.NewModelCache(backend, logger)
	svc := service.NewTranslationService(cache, logger)

	jobQueue := service.NewJobQueue(logger)
	jobQueue.SetProcessor(service.NewJobProcessor(svc, logger))

	// Start periodic cleanup goroutine for finished jobs
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				jobQueue.CleanupOldJobs(*jobMaxAge)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()
	logger.WithFields(logrus.Fields{
		"cleanup_interval": "10m",
		"job_max_age":      jobMaxAge.String(),
	}).Info("Started job cleanup goroutine")

	httpServer := server.NewHTTPServer(svc, jobQueue, logger, *port)
	srv := &http.Server{
		Addr:    httpServer.Addr(),
		Handler: httpServer.Handler(),
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port": *port,
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Fatal("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Graceful shutdown timeout, forcing stop...")
			srv.Close()
		} else {
			logger.Info("Server stopped gracefully")
		}
	}
}
