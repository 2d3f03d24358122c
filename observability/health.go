package observability

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one component, such as an external tool.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthReport aggregates component health. The overall status is the
// worst of its components.
type HealthReport struct {
	Name       string       `json:"name"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewHealthReport creates a report with status up.
func NewHealthReport(name, version string) *HealthReport {
	return &HealthReport{
		Name:    name,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component result and degrades the overall status if needed.
func (r *HealthReport) AddComponent(h Health) {
	r.Components = append(r.Components, h)

	switch h.Status {
	case HealthStatusDown:
		r.Status = HealthStatusDown
	case HealthStatusDegraded:
		if r.Status != HealthStatusDown {
			r.Status = HealthStatusDegraded
		}
	}
}
