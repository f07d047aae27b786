package csvio

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"sidekick-route-service/internal/domain"
)

// Problem is everything read from one problem directory plus a vehicle
// table.
type Problem struct {
	Name  string
	Nodes []domain.Node
	Fleet *domain.Fleet
	// Nil when the directory has no truck travel table.
	Matrix domain.TruckMatrix
}

const locationsFile = "tbl_locations.csv"

// Truck tables are looked up in this order.
var matrixFiles = []string{"tbl_truck_travel_data.csv", "tbl_truck_travel_data_PG.csv"}

// LoadProblem reads dir/tbl_locations.csv, the vehicle table and, when
// present, the truck travel table. Only the first maxDrones drones are kept
// (all when negative); asking for more than the table offers logs a warning.
func LoadProblem(dir, vehiclesPath string, maxDrones int) (*Problem, error) {
	vf, err := os.Open(vehiclesPath)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	defer vf.Close()
	vehicles, err := ReadVehicles(vf)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	fleet, offered, err := domain.NewFleet(vehicles, maxDrones)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	if maxDrones > offered {
		log.Printf("op=load_problem warn=requested %d drones, vehicle table has %d", maxDrones, offered)
	}

	lf, err := os.Open(filepath.Join(dir, locationsFile))
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	defer lf.Close()
	nodes, err := ReadLocations(lf)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	fleet.ApplyServiceTimes(nodes)

	p := &Problem{Name: filepath.Base(dir), Nodes: nodes, Fleet: fleet}
	for _, name := range matrixFiles {
		mf, err := os.Open(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load problem: %w", err)
		}
		m, err := ReadTruckMatrix(mf)
		mf.Close()
		if err != nil {
			return nil, fmt.Errorf("load problem: %w", err)
		}
		p.Matrix = m
		break
	}
	return p, nil
}
