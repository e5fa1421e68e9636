package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/middleware"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	api_models "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models/api"
)

const (
	MsgIngested       = "Data ingested successfully!"
	MsgNoSensorData   = "No sensor data provided."
	MsgInvalidPayload = "Invalid JSON payload."
	MsgIngestFailed   = "Error ingesting data."
	MsgFetchFailed    = "Failed to fetch readings"

	maxPayloadBytes = 1 << 20
)

// ReadingController handles reading ingestion and the raw data API
type ReadingController struct {
	ingestor *telemetry.Ingestor
	query    *telemetry.QueryService
	logger   *logger.Logger
	apiKey   string
	timeout  time.Duration
}

// NewReadingController creates a new reading controller
func NewReadingController(ingestor *telemetry.Ingestor, query *telemetry.QueryService, logger *logger.Logger, apiKey string, timeout time.Duration) *ReadingController {
	return &ReadingController{
		ingestor: ingestor,
		query:    query,
		logger:   logger,
		apiKey:   apiKey,
		timeout:  timeout,
	}
}

// RegisterRoutes registers the reading routes with Gin
func (c *ReadingController) RegisterRoutes(router *gin.Engine) {
	// Devices authenticate with the API key, reads stay public
	router.POST("/readings", middleware.APIKeyMiddleware(c.apiKey), c.IngestReading)
	router.GET("/api/readings", c.GetReadings)
}

func (c *ReadingController) IngestReading(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxPayloadBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.ErrorResponse{Message: MsgInvalidPayload, Error: err.Error()})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	reading, err := c.ingestor.Ingest(reqCtx, body, "")
	switch {
	case errors.Is(err, telemetry.ErrMalformedInput):
		ctx.JSON(http.StatusBadRequest, api_models.ErrorResponse{Message: MsgInvalidPayload})
		return
	case errors.Is(err, telemetry.ErrEmptyPayload):
		ctx.JSON(http.StatusBadRequest, api_models.ErrorResponse{Message: MsgNoSensorData})
		return
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, api_models.ErrorResponse{Message: MsgIngestFailed, Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, api_models.IngestResponse{
		Message:   MsgIngested,
		DeviceID:  reading.DeviceID,
		Timestamp: reading.Timestamp,
	})
}

func (c *ReadingController) GetReadings(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	view := c.query.RecentReadings(reqCtx, parseHours(ctx.Query("hours")), ctx.Query("device"))

	resp := api_models.ReadingsResponse{
		Readings: view.Readings,
		Count:    len(view.Readings),
		Degraded: view.Degraded(),
	}
	if view.Err != nil {
		resp.Error = MsgFetchFailed
	}

	body, err := json.Marshal(resp)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to encode readings")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": MsgFetchFailed})
		return
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// parseHours reads the hours query parameter. Anything unparsable maps to 0,
// which the query layer replaces with the default window.
func parseHours(raw string) float64 {
	hours, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return hours
}
