package aqmmodels

// DeviceProfile describes a simulated air monitor: the baseline value of each
// metric and the peak-to-peak variation around it.
type DeviceProfile struct {
	DeviceID   string             `json:"device_id"`
	Baselines  map[string]float64 `json:"baselines"`
	Variations map[string]float64 `json:"variations"`
}
