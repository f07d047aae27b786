package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jszwec/csvutil"

	"sidekick-route-service/internal/domain"
)

// SolutionHeader describes the run a solution file belongs to.
type SolutionHeader struct {
	ProblemName         string
	VehicleFile         string
	Budget              time.Duration
	NumDrones           int
	RequireTruckAtDepot bool
	RequireDriver       bool
}

type activityRow struct {
	VehicleID    int     `csv:"vehicleID"`
	VehicleType  string  `csv:"vehicleType"`
	ActivityType string  `csv:"activityType"`
	StartTime    float64 `csv:"startTime"`
	StartNode    int     `csv:"startNode"`
	EndTime      float64 `csv:"endTime"`
	EndNode      int     `csv:"endNode"`
	Description  string  `csv:"Description"`
	Status       string  `csv:"Status"`
}

// WriteSolution writes the run header, the objective and one row per
// activity ordered by vehicle and start time.
func WriteSolution(w io.Writer, h SolutionHeader, sol domain.Solution) error {
	_, err := fmt.Fprintf(w,
		"problemName, vehicleFile, timeBudget, numUAVs, numTrucks, requireTruckAtDepot, requireDriver \n%s, %s, %s, %d, 1, %t, %t \n\nObjective Function Value: %f \n\nAssignments: \n",
		h.ProblemName, h.VehicleFile, h.Budget, h.NumDrones, h.RequireTruckAtDepot, h.RequireDriver, sol.Objective)
	if err != nil {
		return fmt.Errorf("write solution: %w", err)
	}

	acts := append([]domain.Activity(nil), sol.Schedule.Activities...)
	domain.SortActivities(acts)
	rows := make([]activityRow, 0, len(acts))
	for _, a := range acts {
		rows = append(rows, activityRow{
			VehicleID:    a.VehicleID,
			VehicleType:  a.VehicleKind.String(),
			ActivityType: a.Status.String(),
			StartTime:    a.StartTime,
			StartNode:    a.StartNode,
			EndTime:      a.EndTime,
			EndNode:      a.EndNode,
			Description:  a.Description,
			Status:       a.Gantt.String(),
		})
	}

	cw := csv.NewWriter(w)
	if err := csvutil.NewEncoder(cw).Encode(rows); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	return nil
}

// PerformanceRow is one line of the cumulative performance summary.
type PerformanceRow struct {
	ProblemName         string  `csv:"problemName"`
	VehicleFile         string  `csv:"vehicleFile"`
	BudgetSeconds       float64 `csv:"timeBudget"`
	NumDrones           int     `csv:"numUAVs"`
	RequireTruckAtDepot bool    `csv:"requireTruckAtDepot"`
	RequireDriver       bool    `csv:"requireDriver"`
	NumCustomers        int     `csv:"numCustomers"`
	Timestamp           string  `csv:"timestamp"`
	Objective           float64 `csv:"objVal"`
	ElapsedSeconds      float64 `csv:"totalTime"`
	NumDroneCustomers   int     `csv:"numUAVcust"`
	NumTruckCustomers   int     `csv:"numTruckCust"`
	TruckWaiting        float64 `csv:"waitingTruck"`
	DroneWaiting        float64 `csv:"waitingUAV"`
}

// AppendPerformance writes row, preceded by the column names when
// withHeader is set (a new summary file).
func AppendPerformance(w io.Writer, row PerformanceRow, withHeader bool) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = withHeader
	if err := enc.Encode(row); err != nil {
		return fmt.Errorf("append performance: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("append performance: %w", err)
	}
	return nil
}
