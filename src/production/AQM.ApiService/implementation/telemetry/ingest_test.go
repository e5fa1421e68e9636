package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	implementation "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

const defaultDevice = "air-monitor-01"

func newTestIngestor(repo interfaces.ReadingRepository, opts ...Option) *Ingestor {
	return NewIngestor(repo, defaultDevice, logger.NewNop(), opts...)
}

func TestIngest_CopiesMetricsAndDefaultsDevice(t *testing.T) {
	repo := implementation.NewMemoryReadingRepository()
	ing := newTestIngestor(repo)

	start := time.Now().UnixMilli()
	got, err := ing.Ingest(context.Background(), []byte(`{"temperature":21.5,"co2":600,"custom":{"a":[1,2]},"label":"x"}`), "")
	end := time.Now().UnixMilli()
	require.NoError(t, err)

	assert.Equal(t, defaultDevice, got.DeviceID)
	assert.GreaterOrEqual(t, got.Timestamp, start)
	assert.LessOrEqual(t, got.Timestamp, end)
	assert.Equal(t, map[string]interface{}{
		"temperature": 21.5,
		"co2":         600.0,
		"custom":      map[string]interface{}{"a": []interface{}{1.0, 2.0}},
		"label":       "x",
	}, got.Metrics)

	stored, err := repo.QueryByDevice(context.Background(), defaultDevice, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, got, stored[0])
}

func TestIngest_DeviceIDResolution(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		fallback string
		want     string
	}{
		{name: "payload wins", payload: `{"deviceId":"dev-1","co2":1}`, fallback: "topic", want: "dev-1"},
		{name: "fallback when absent", payload: `{"co2":1}`, fallback: "topic", want: "topic"},
		{name: "default when absent", payload: `{"co2":1}`, want: defaultDevice},
		{name: "empty string uses default", payload: `{"deviceId":"","co2":1}`, want: defaultDevice},
		{name: "non-string uses default", payload: `{"deviceId":42,"co2":1}`, want: defaultDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := newTestIngestor(implementation.NewMemoryReadingRepository())

			got, err := ing.Ingest(context.Background(), []byte(tt.payload), tt.fallback)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got.DeviceID)
			assert.NotContains(t, got.Metrics, "deviceId")
		})
	}
}

func TestIngest_ServerTimestampOverridesPayload(t *testing.T) {
	clock := &manualClock{now: time.UnixMilli(1_700_000_000_000)}
	ing := newTestIngestor(implementation.NewMemoryReadingRepository(), WithClock(clock.Now))

	got, err := ing.Ingest(context.Background(), []byte(`{"timestamp":5,"co2":700}`), "")
	require.NoError(t, err)

	assert.Equal(t, int64(1_700_000_000_000), got.Timestamp)
	assert.NotContains(t, got.Metrics, "timestamp")
}

func TestIngest_TimestampOnlyPayloadIsStored(t *testing.T) {
	clock := &manualClock{now: time.UnixMilli(1_700_000_000_000)}
	repo := implementation.NewMemoryReadingRepository()
	obs := &recordingObserver{}
	ing := newTestIngestor(repo, WithClock(clock.Now), WithObserver(obs))

	got, err := ing.Ingest(context.Background(), []byte(`{"deviceId":"dev-1","timestamp":5}`), "")
	require.NoError(t, err)

	assert.Equal(t, "dev-1", got.DeviceID)
	assert.Equal(t, int64(1_700_000_000_000), got.Timestamp)
	assert.Empty(t, got.Metrics)

	stored, err := repo.QueryByDevice(context.Background(), "dev-1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(1_700_000_000_000), stored[0].Timestamp)
	assert.Equal(t, []string{ResultOK}, obs.results)
}

func TestIngest_EmptyPayload(t *testing.T) {
	for _, payload := range []string{`{}`, `{"deviceId":"dev-1"}`} {
		t.Run(payload, func(t *testing.T) {
			repo := implementation.NewMemoryReadingRepository()
			obs := &recordingObserver{}
			ing := newTestIngestor(repo, WithObserver(obs))

			_, err := ing.Ingest(context.Background(), []byte(payload), "")

			assert.ErrorIs(t, err, ErrEmptyPayload)
			ids, _ := repo.ListDeviceIDs(context.Background())
			assert.Empty(t, ids)
			assert.Equal(t, []string{ResultEmpty}, obs.results)
		})
	}
}

func TestIngest_MalformedInput(t *testing.T) {
	for _, payload := range []string{``, `not json`, `[1,2]`, `"text"`, `42`, `null`} {
		t.Run(payload, func(t *testing.T) {
			repo := &failingRepo{}
			ing := newTestIngestor(repo)

			_, err := ing.Ingest(context.Background(), []byte(payload), "")

			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Zero(t, repo.puts)
		})
	}
}

func TestIngest_StoreWriteError(t *testing.T) {
	repo := &failingRepo{}
	obs := &recordingObserver{}
	ing := newTestIngestor(repo, WithObserver(obs))

	_, err := ing.Ingest(context.Background(), []byte(`{"co2":500}`), "")

	var writeErr *interfaces.StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, 1, repo.puts)
	assert.Equal(t, []string{ResultStoreError}, obs.results)
}
