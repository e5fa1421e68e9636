package controllers

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

//go:embed templates/dashboard.html
var dashboardHTML string

// ChartMetric is one chart on the dashboard
type ChartMetric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

// DashboardCharts lists the metrics the firmware reports, in display order
var DashboardCharts = []ChartMetric{
	{Key: "temperature", Label: "Temperature", Unit: "°C"},
	{Key: "humidity", Label: "Humidity", Unit: "%"},
	{Key: "co2", Label: "CO₂", Unit: "ppm"},
	{Key: "tvoc", Label: "TVOC", Unit: "ppb"},
	{Key: "eco2", Label: "eCO₂", Unit: "ppm"},
	{Key: "mc1p0", Label: "PM1.0", Unit: "μg/m³"},
	{Key: "mc2p5", Label: "PM2.5", Unit: "μg/m³"},
	{Key: "mc4p0", Label: "PM4.0", Unit: "μg/m³"},
	{Key: "mc10p0", Label: "PM10.0", Unit: "μg/m³"},
	{Key: "nc0p5", Label: "Particle Count 0.5μm", Unit: "#/cm³"},
	{Key: "nc1p0", Label: "Particle Count 1.0μm", Unit: "#/cm³"},
	{Key: "nc2p5", Label: "Particle Count 2.5μm", Unit: "#/cm³"},
	{Key: "nc4p0", Label: "Particle Count 4.0μm", Unit: "#/cm³"},
	{Key: "nc10p0", Label: "Particle Count 10.0μm", Unit: "#/cm³"},
	{Key: "typicalParticleSize", Label: "Typical Particle Size", Unit: "nm"},
}

var summaryMetrics = []string{"temperature", "humidity", "co2", "mc2p5"}

var hourOptions = []struct {
	hours float64
	label string
}{
	{1, "Last Hour"},
	{6, "Last 6 Hours"},
	{24, "Last 24 Hours"},
	{72, "Last 3 Days"},
	{168, "Last Week"},
}

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type summaryCard struct {
	Label string
	Unit  string
	Value string
}

type dashboardPage struct {
	HourOptions   []selectOption
	DeviceOptions []selectOption
	Degraded      bool
	Count         int
	LatestAt      string
	Latest        []summaryCard
	Charts        []ChartMetric
	Readings      []aqmmodels.Reading
}

// DashboardController renders the HTML dashboard
type DashboardController struct {
	query   *telemetry.QueryService
	logger  *logger.Logger
	timeout time.Duration
	tmpl    *template.Template
}

// NewDashboardController creates a new dashboard controller
func NewDashboardController(query *telemetry.QueryService, logger *logger.Logger, timeout time.Duration) *DashboardController {
	return &DashboardController{
		query:   query,
		logger:  logger,
		timeout: timeout,
		tmpl:    template.Must(template.New("dashboard.html").Parse(dashboardHTML)),
	}
}

// RegisterRoutes registers the dashboard route with Gin
func (c *DashboardController) RegisterRoutes(router *gin.Engine) {
	router.GET("/", c.ShowDashboard)
}

func (c *DashboardController) ShowDashboard(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	dashboard := c.query.Dashboard(reqCtx, parseHours(ctx.Query("hours")), ctx.Query("device"))

	// Buffered so a template error can still answer 500
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, buildDashboardPage(dashboard)); err != nil {
		c.logger.ErrorWithError(err, "Error rendering dashboard")
		ctx.String(http.StatusInternalServerError, "Error loading dashboard")
		return
	}

	ctx.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func buildDashboardPage(d telemetry.Dashboard) dashboardPage {
	page := dashboardPage{
		Degraded: d.Degraded(),
		Count:    len(d.Readings),
		Charts:   DashboardCharts,
		Readings: d.Readings,
	}

	for _, opt := range hourOptions {
		page.HourOptions = append(page.HourOptions, selectOption{
			Value:    strconv.FormatFloat(opt.hours, 'f', -1, 64),
			Label:    opt.label,
			Selected: opt.hours == d.HoursWindow,
		})
	}
	for _, id := range d.DeviceIDs {
		page.DeviceOptions = append(page.DeviceOptions, selectOption{
			Value:    id,
			Label:    id,
			Selected: id == d.DeviceID,
		})
	}

	if len(d.Readings) > 0 {
		latest := d.Readings[0]
		page.LatestAt = time.UnixMilli(latest.Timestamp).UTC().Format("2006-01-02 15:04:05 UTC")
		for _, key := range summaryMetrics {
			v, ok := latest.Metric(key)
			if !ok {
				continue
			}
			chart := chartByKey(key)
			page.Latest = append(page.Latest, summaryCard{
				Label: chart.Label,
				Unit:  chart.Unit,
				Value: strconv.FormatFloat(v, 'f', -1, 64),
			})
		}
	}

	return page
}

func chartByKey(key string) ChartMetric {
	for _, c := range DashboardCharts {
		if c.Key == key {
			return c
		}
	}
	return ChartMetric{Key: key, Label: key}
}
