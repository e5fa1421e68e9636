package api_models

import aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"

// ReadingsResponse is the raw data API payload
type ReadingsResponse struct {
	Readings []aqmmodels.Reading `json:"readings"`
	Count    int                 `json:"count"`
	Degraded bool                `json:"degraded,omitempty"`
	Error    string              `json:"error,omitempty"`
}
