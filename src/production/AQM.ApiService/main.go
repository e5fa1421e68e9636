package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/controllers"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	container "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	config := ctr.GetConfig()
	logger := ctr.GetLogger().WithService("aqm-api")
	logger.Logger.Info().
		Str("environment", config.Environment).
		Str("backend", config.Store.Backend).
		Msg("Starting API Service")

	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := ctr.GetReadingRepository(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to open reading store")
	}
	checker, err := ctr.GetHealthChecker(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to create health checker")
	}
	m := ctr.GetMetrics()

	router := controllers.NewRouter(controllers.RouterDeps{
		Config:   config,
		Logger:   logger,
		Ingestor: telemetry.NewIngestor(repo, config.Ingest.DefaultDeviceID, logger, telemetry.WithObserver(m)),
		Query:    telemetry.NewQueryService(repo, logger, telemetry.WithObserver(m)),
		Health:   checker,
		Metrics:  m,
	})

	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("API service running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
