package ports

import (
	"context"

	"sidekick-route-service/internal/domain"
)

// Receives planner progress events. Implementations must not block the
// planner for long; delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.PlanEvent) error
}
