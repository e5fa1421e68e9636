package health

import (
	"context"
	"fmt"
	"time"

	config "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Config"
	api_models "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models/api"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StoreConnected = "connected"
)

// HealthChecker provides health check functionality on top of the reading store
type HealthChecker struct {
	repo        interfaces.ReadingRepository
	backend     string
	table       string
	environment string
	now         func() time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(repo interfaces.ReadingRepository, cfg *config.Config) *HealthChecker {
	return &HealthChecker{
		repo:        repo,
		backend:     cfg.Store.Backend,
		table:       cfg.StoreName(),
		environment: cfg.Environment,
		now:         time.Now,
	}
}

// PingStore checks if the store answers a minimal read
func (h *HealthChecker) PingStore(ctx context.Context) error {
	if h.repo == nil {
		return fmt.Errorf("reading store is nil")
	}
	return h.repo.Ping(ctx)
}

// GetHealthStatus returns the current health status. A failing store
// degrades the status but never fails the check itself.
func (h *HealthChecker) GetHealthStatus(ctx context.Context, path string) api_models.HealthResponse {
	status := api_models.HealthResponse{
		Status:      StatusOK,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
		Message:     "Air Quality Monitor API is running",
		Path:        path,
		Table:       h.table,
		Backend:     h.backend,
		Environment: h.environment,
		Store:       StoreConnected,
	}

	if err := h.PingStore(ctx); err != nil {
		status.Status = StatusDegraded
		status.Store = "error: " + err.Error()
	}

	return status
}
