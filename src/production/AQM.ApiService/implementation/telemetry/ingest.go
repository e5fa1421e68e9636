package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

// Ingestor turns raw device payloads into stored readings
type Ingestor struct {
	repo            interfaces.ReadingRepository
	defaultDeviceID string
	logger          *logger.Logger
	opts            options
}

// NewIngestor creates a new ingestor writing to repo
func NewIngestor(repo interfaces.ReadingRepository, defaultDeviceID string, log *logger.Logger, opts ...Option) *Ingestor {
	return &Ingestor{
		repo:            repo,
		defaultDeviceID: defaultDeviceID,
		logger:          log.WithComponent("ingestor"),
		opts:            buildOptions(opts),
	}
}

// Ingest parses a JSON object payload, stamps it with the server clock and
// stores it. fallbackDeviceID is used when the payload has no deviceId; when
// it is empty too the configured default applies.
//
// A caller-supplied timestamp is discarded.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte, fallbackDeviceID string) (aqmmodels.Reading, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		i.opts.observer.IngestResult(ResultMalformed)
		if err == nil {
			err = errors.New("payload is not an object")
		}
		return aqmmodels.Reading{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	deviceID := i.resolveDeviceID(payload[aqmmodels.DeviceIDKey], fallbackDeviceID)
	delete(payload, aqmmodels.DeviceIDKey)

	if len(payload) == 0 {
		i.opts.observer.IngestResult(ResultEmpty)
		return aqmmodels.Reading{}, ErrEmptyPayload
	}

	// A body holding only a timestamp is still a reading; the server stamp replaces it.
	delete(payload, aqmmodels.TimestampKey)

	reading := aqmmodels.Reading{
		DeviceID:  deviceID,
		Timestamp: i.opts.now().UnixMilli(),
		Metrics:   payload,
	}

	if err := i.repo.PutReading(ctx, reading); err != nil {
		i.opts.observer.IngestResult(ResultStoreError)
		var writeErr *interfaces.StoreWriteError
		if !errors.As(err, &writeErr) {
			err = &interfaces.StoreWriteError{Err: err}
		}
		i.logger.WithField("device_id", deviceID).ErrorWithError(err, "Failed to store reading")
		return aqmmodels.Reading{}, err
	}

	i.opts.observer.IngestResult(ResultOK)
	i.logger.Logger.Debug().
		Str("device_id", deviceID).
		Int64("timestamp", reading.Timestamp).
		Int("metrics", len(reading.Metrics)).
		Msg("Reading stored")

	return reading, nil
}

func (i *Ingestor) resolveDeviceID(v interface{}, fallback string) string {
	if id, ok := v.(string); ok && id != "" {
		return id
	}
	if fallback != "" {
		return fallback
	}
	return i.defaultDeviceID
}
