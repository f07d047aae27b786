package domain

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Persisted summary of one planner run.
type RunRecord struct {
	ID                string
	ProblemName       string
	CreatedAt         time.Time
	Status            RunStatus
	Makespan          float64
	NumCustomers      int
	NumDrones         int
	NumTruckCustomers int
	NumDroneCustomers int
	TruckWaiting      float64
	DroneWaiting      float64
	ElapsedSeconds    float64
	// JSON encoding of the Solution, empty when the run failed.
	SolutionJSON string
}
