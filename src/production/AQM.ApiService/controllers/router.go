package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/health"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/metrics"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/middleware"
	config "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Config"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
)

// RouterDeps is everything the HTTP surface needs
type RouterDeps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Ingestor *telemetry.Ingestor
	Query    *telemetry.QueryService
	Health   *health.HealthChecker
	Metrics  *metrics.Metrics // optional
}

// NewRouter builds the gin engine with middleware and all routes registered
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	// Configure CORS from config
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig := cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
		}
		router.Use(cors.New(corsConfig))
	}

	timeout := cfg.Store.Timeout

	readingController := NewReadingController(deps.Ingestor, deps.Query, deps.Logger, cfg.Ingest.APIKey, timeout)
	dashboardController := NewDashboardController(deps.Query, deps.Logger, timeout)

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		metricsHandler = deps.Metrics.Handler()
	}
	healthController := NewHealthController(deps.Health, metricsHandler, deps.Logger, timeout)

	readingController.RegisterRoutes(router)
	dashboardController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	return router
}
