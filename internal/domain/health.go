package domain

import "time"

const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// HealthSample is one weighted component reading in [0,1].
// Value is the raw observation the score was derived from.
type HealthSample struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// HealthReport is the aggregate snapshot produced by the periodic sampler.
type HealthReport struct {
	Status        string         `json:"status"`
	Score         float64        `json:"score"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Samples       []HealthSample `json:"samples"`
}

// HealthStatusForScore buckets the combined score: <0.7 critical, <0.9 warning.
func HealthStatusForScore(score float64) string {
	switch {
	case score < 0.7:
		return HealthCritical
	case score < 0.9:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
