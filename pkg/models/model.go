package models

// Model describes an entry in the model catalog.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxTokens   int    `json:"maxTokens"`

	// Precise marks models tuned for deterministic output; they get a lower
	// default temperature.
	Precise bool `json:"-"`
}

// Default settings applied when the model id is unknown to the catalog.
const (
	DefaultTemperature        = 0.7
	DefaultPreciseTemperature = 0.5
	DefaultMaxTokens          = 4096
)

// HealthStatus is the result of a provider health check. Status is either
// "healthy" or "unhealthy"; Details carries provider-specific context.
type HealthStatus struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)
