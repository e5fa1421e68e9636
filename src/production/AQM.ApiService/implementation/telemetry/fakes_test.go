package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

var errBackendDown = errors.New("backend unavailable")

// failingRepo fails every read and write like an unreachable backend
type failingRepo struct {
	puts int
}

func (f *failingRepo) PutReading(ctx context.Context, r aqmmodels.Reading) error {
	f.puts++
	return errBackendDown
}

func (f *failingRepo) QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error) {
	return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: errBackendDown}
}

func (f *failingRepo) ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error) {
	return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: errBackendDown}
}

func (f *failingRepo) ListDeviceIDs(ctx context.Context) ([]string, error) {
	return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: errBackendDown}
}

func (f *failingRepo) Ping(ctx context.Context) error {
	return &interfaces.StoreReadError{Op: interfaces.OpPing, Err: errBackendDown}
}

type recordingObserver struct {
	mu       sync.Mutex
	results  []string
	failures []string
}

func (o *recordingObserver) IngestResult(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) StoreReadFailure(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, op)
}

// manualClock returns a settable instant
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
