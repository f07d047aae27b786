package domain

import "time"

type PlanEventKind string

const (
	EventThresholdStarted  PlanEventKind = "threshold_started"
	EventIncumbentImproved PlanEventKind = "incumbent_improved"
	EventRunFinished       PlanEventKind = "run_finished"
)

// Progress notification emitted by the planner.
type PlanEvent struct {
	RunID     string        `json:"run_id"`
	Kind      PlanEventKind `json:"kind"`
	Threshold int           `json:"threshold"`
	Makespan  float64       `json:"makespan"`
	At        time.Time     `json:"at"`
}
