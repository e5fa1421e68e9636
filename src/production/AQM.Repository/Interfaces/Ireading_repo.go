package interfaces

import (
	"context"
	"errors"
	"fmt"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

// MaxDeviceQueryItems caps a single per-device query
const MaxDeviceQueryItems = 1000

// Read operation names carried by StoreReadError
const (
	OpQueryByDevice = "query_by_device"
	OpScanSince     = "scan_since"
	OpListDeviceIDs = "list_device_ids"
	OpPing          = "ping"
)

var ErrDeviceIDRequired = errors.New("device id is required")

// StoreWriteError is returned when the backend rejects a put
type StoreWriteError struct {
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed: %v", e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError is returned when a query, scan or ping fails
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("store read %s failed: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

type ReadingRepository interface {
	// PutReading upserts a reading keyed by (deviceId, timestamp)
	PutReading(ctx context.Context, reading aqmmodels.Reading) error

	// QueryByDevice returns readings of one device with timestamp >= sinceTs,
	// most recent first, at most MaxDeviceQueryItems
	QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error)

	// ScanSince returns readings of every device with timestamp >= sinceTs, unordered
	ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error)

	// ListDeviceIDs returns distinct device ids in ascending order
	ListDeviceIDs(ctx context.Context) ([]string, error)

	// Ping performs a minimal read against the backend
	Ping(ctx context.Context) error
}
