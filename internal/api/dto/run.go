package dto

import (
	"encoding/json"
	"time"
)

type RunResponse struct {
	ID                string    `json:"id"`
	ProblemName       string    `json:"problem_name"`
	CreatedAt         time.Time `json:"created_at"`
	Status            string    `json:"status"`
	Makespan          float64   `json:"makespan"`
	NumCustomers      int       `json:"num_customers"`
	NumDrones         int       `json:"num_drones"`
	NumTruckCustomers int       `json:"num_truck_customers"`
	NumDroneCustomers int       `json:"num_drone_customers"`
	TruckWaiting      float64   `json:"truck_waiting"`
	DroneWaiting      float64   `json:"drone_waiting"`
	ElapsedSeconds    float64   `json:"elapsed_seconds"`
}

type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type RunDetailResponse struct {
	RunResponse
	// Stored solution document, absent for failed runs.
	Solution json.RawMessage `json:"solution,omitempty"`
}
