package models

import "time"

// HealthCheck reports dependency status. Formats lists the output formats
// that can currently be encoded.
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Formats   []Format          `json:"formats"`
}
