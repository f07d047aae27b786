package repositories

import (
	"errors"
	"fmt"

	"sidekick-route-service/internal/domain"
)

const runColumns = `
	id,
	problem_name,
	created_at,
	status,
	makespan,
	num_customers,
	num_drones,
	num_truck_customers,
	num_drone_customers,
	truck_waiting,
	drone_waiting,
	elapsed_seconds,
	solution_json`

const defaultListLimit = 50

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row; createdAt receives the driver's timestamp
// representation and is converted by the caller.
func scanRun(row rowScanner, createdAt any) (domain.RunRecord, error) {
	var r domain.RunRecord
	var status string
	err := row.Scan(
		&r.ID,
		&r.ProblemName,
		createdAt,
		&status,
		&r.Makespan,
		&r.NumCustomers,
		&r.NumDrones,
		&r.NumTruckCustomers,
		&r.NumDroneCustomers,
		&r.TruckWaiting,
		&r.DroneWaiting,
		&r.ElapsedSeconds,
		&r.SolutionJSON,
	)
	r.Status = domain.RunStatus(status)
	return r, err
}

func runArgs(r domain.RunRecord, createdAt any) []any {
	return []any{
		r.ID,
		r.ProblemName,
		createdAt,
		string(r.Status),
		r.Makespan,
		r.NumCustomers,
		r.NumDrones,
		r.NumTruckCustomers,
		r.NumDroneCustomers,
		r.TruckWaiting,
		r.DroneWaiting,
		r.ElapsedSeconds,
		r.SolutionJSON,
	}
}

func validateRun(r domain.RunRecord) error {
	if r.ID == "" {
		return errors.New("save run: id must not be empty")
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("save run %s: created_at must be set", r.ID)
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
