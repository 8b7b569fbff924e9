package health

import (
	"context"
	"time"

	"github.com/fluxorio/mtp/pkg/web"
)

// Aggregator turns registry results into the /health response
type Aggregator struct {
	registry *Registry
}

// NewAggregator creates an aggregator over registry
func NewAggregator(registry *Registry) *Aggregator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Aggregator{registry: registry}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Status runs every check; the overall status is DOWN if any check is
func (a *Aggregator) Status(ctx context.Context) (Status, map[string]CheckResult) {
	results := a.registry.Check(ctx)
	overall := StatusUp
	for _, result := range results {
		if result.Status == StatusDown {
			overall = StatusDown
			break
		}
	}
	return overall, results
}

// HandleHealth serves /health: 200 when UP, 503 when DOWN
func (a *Aggregator) HandleHealth(ctx *web.FastRequestContext) error {
	overall, results := a.Status(ctx.Context())

	statusCode := 200
	if overall == StatusDown {
		statusCode = 503
	}
	return ctx.JSON(statusCode, HealthResponse{
		Status:    string(overall),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
		RequestID: ctx.RequestID(),
	})
}
