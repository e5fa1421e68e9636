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
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/health"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/metrics"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/middleware"
	container "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Container"
	aqmingestor "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.IngestorService/ingestor"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewIngestorContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	config := ctr.GetConfig()
	logger := ctr.GetLogger().WithService("aqm-ingestor")
	logger.Info("Starting MQTT Ingestor Service")

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

	ingestor := telemetry.NewIngestor(repo, config.Ingest.DefaultDeviceID, logger, telemetry.WithObserver(m))

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	ing := aqmingestor.New(aqmingestor.LoadFromConfig(config), ingestor, logger)
	if err := ing.Start(runCtx); err != nil {
		logger.FatalWithError(err, "Failed to start MQTT ingestor")
	}
	defer ing.Stop()

	srv := &http.Server{
		Addr:         ":" + config.Server.Port,
		Handler:      healthRouter(ing, checker, m, logger, config.Store.Timeout),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}
	go func() {
		logger.Info("Health server starting on port " + config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start health server")
		}
	}()

	logger.Info("MQTT ingestor running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Health server forced to shutdown")
	}
}

// healthRouter reports broker and store connectivity
func healthRouter(ing *aqmingestor.Ingestor, checker *health.HealthChecker, m *metrics.Metrics, log *logger.Logger, timeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(m.Middleware())

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		mqttStatus := "disconnected"
		if ing.IsConnected() {
			mqttStatus = "connected"
		}
		storeStatus := health.StoreConnected
		if err := checker.PingStore(ctx); err != nil {
			storeStatus = "error: " + err.Error()
		}

		status := http.StatusOK
		body := gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services":  gin.H{"mqtt": mqttStatus, "store": storeStatus},
		}
		if mqttStatus != "connected" || storeStatus != health.StoreConnected {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
			log.Logger.Warn().Str("mqtt", mqttStatus).Str("store", storeStatus).Msg("Ingestor not ready")
		}
		c.JSON(status, body)
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))
	return router
}
