package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	config "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Config"
	implementation "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Implementation"
)

type downRepo struct {
	*implementation.MemoryReadingRepository
}

func (downRepo) Ping(ctx context.Context) error { return errors.New("no such table") }

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Store: config.StoreConfig{
			Backend:  config.BackendDynamoDB,
			DynamoDB: config.DynamoDBConfig{TableName: "air-monitor-readings"},
		},
	}
}

func TestGetHealthStatus_OK(t *testing.T) {
	h := NewHealthChecker(implementation.NewMemoryReadingRepository(), testConfig())
	h.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	status := h.GetHealthStatus(context.Background(), "/health")

	assert.Equal(t, StatusOK, status.Status)
	assert.Equal(t, StoreConnected, status.Store)
	assert.Equal(t, "2024-01-02T03:04:05Z", status.Timestamp)
	assert.Equal(t, "air-monitor-readings", status.Table)
	assert.Equal(t, "/health", status.Path)
	assert.Equal(t, "test", status.Environment)
}

func TestGetHealthStatus_Degraded(t *testing.T) {
	h := NewHealthChecker(downRepo{implementation.NewMemoryReadingRepository()}, testConfig())

	status := h.GetHealthStatus(context.Background(), "/health")

	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "error: no such table", status.Store)
}
