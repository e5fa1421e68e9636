package telemetry

import "errors"

var (
	// ErrMalformedInput is returned when the payload is not a JSON object
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyPayload is returned when the payload carries no metric besides deviceId
	ErrEmptyPayload = errors.New("no sensor data provided")
)
