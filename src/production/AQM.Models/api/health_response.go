package api_models

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string `json:"status"` // ok or degraded
	Timestamp   string `json:"timestamp"`
	Message     string `json:"message"`
	Path        string `json:"path"`
	Table       string `json:"table"`
	Backend     string `json:"backend"`
	Environment string `json:"environment"`
	Store       string `json:"store"`
}
