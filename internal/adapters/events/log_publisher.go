package events

import (
	"context"
	"log"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// LogPublisher writes events to the standard logger. Used when no broker
// is configured.
type LogPublisher struct{}

var _ ports.EventPublisher = LogPublisher{}

func (LogPublisher) Publish(_ context.Context, ev domain.PlanEvent) error {
	log.Printf("run_id=%s event=%s threshold=%d makespan=%.1f", ev.RunID, ev.Kind, ev.Threshold, ev.Makespan)
	return nil
}
