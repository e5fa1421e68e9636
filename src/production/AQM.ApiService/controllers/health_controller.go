package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/health"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
)

// HealthController handles health and metrics requests
type HealthController struct {
	checker *health.HealthChecker
	metrics http.Handler
	logger  *logger.Logger
	timeout time.Duration
}

// NewHealthController creates a new health controller. metrics may be nil.
func NewHealthController(checker *health.HealthChecker, metrics http.Handler, logger *logger.Logger, timeout time.Duration) *HealthController {
	return &HealthController{
		checker: checker,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	// Public health endpoints
	router.GET("/health", c.Health)
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
	if c.metrics != nil {
		router.GET("/metrics", gin.WrapH(c.metrics))
	}
}

func (c *HealthController) Health(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	status := c.checker.GetHealthStatus(reqCtx, ctx.Request.URL.Path)
	if status.Status != health.StatusOK {
		c.logger.WithField("store", status.Store).Warn("Health check degraded")
	}
	ctx.JSON(http.StatusOK, status)
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	if err := c.checker.PingStore(reqCtx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
