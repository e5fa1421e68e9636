package api_models

// IngestResponse is returned for an accepted reading
type IngestResponse struct {
	Message   string `json:"message"`
	DeviceID  string `json:"deviceId"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse is returned when a reading is rejected or cannot be stored
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
