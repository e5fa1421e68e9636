package implementation

import (
	"context"
	"sync"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

type readingKey struct {
	deviceID  string
	timestamp int64
}

// MemoryReadingRepository keeps readings in process memory. Used for local runs and tests.
type MemoryReadingRepository struct {
	mu       sync.RWMutex
	readings map[readingKey]aqmmodels.Reading
}

func NewMemoryReadingRepository() *MemoryReadingRepository {
	return &MemoryReadingRepository{readings: make(map[readingKey]aqmmodels.Reading)}
}

func (r *MemoryReadingRepository) PutReading(ctx context.Context, reading aqmmodels.Reading) error {
	if err := ctx.Err(); err != nil {
		return &interfaces.StoreWriteError{Err: err}
	}

	stored := reading
	stored.Metrics = make(map[string]interface{}, len(reading.Metrics))
	for k, v := range reading.Metrics {
		stored.Metrics[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings[readingKey{reading.DeviceID, reading.Timestamp}] = stored
	return nil
}

func (r *MemoryReadingRepository) QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error) {
	if deviceID == "" {
		return nil, interfaces.ErrDeviceIDRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
	}

	r.mu.RLock()
	out := make([]aqmmodels.Reading, 0)
	for key, reading := range r.readings {
		if key.deviceID == deviceID && key.timestamp >= sinceTs {
			out = append(out, reading)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	if len(out) > interfaces.MaxDeviceQueryItems {
		out = out[:interfaces.MaxDeviceQueryItems]
	}
	return out, nil
}

func (r *MemoryReadingRepository) ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]aqmmodels.Reading, 0)
	for key, reading := range r.readings {
		if key.timestamp >= sinceTs {
			out = append(out, reading)
		}
	}
	return out, nil
}

func (r *MemoryReadingRepository) ListDeviceIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
	}

	r.mu.RLock()
	ids := make([]string, 0, len(r.readings))
	for key := range r.readings {
		ids = append(ids, key.deviceID)
	}
	r.mu.RUnlock()

	return distinctSorted(ids), nil
}

func (r *MemoryReadingRepository) Ping(ctx context.Context) error {
	return nil
}
