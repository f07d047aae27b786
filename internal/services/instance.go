package services

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/kinematics"
)

// Options toggle the two operating rules of a run.
type Options struct {
	// The truck attends launches at the depot and recoveries at the depot
	// copy. When false it may leave the depot at once and drones may land
	// at the depot without it.
	RequireTruckAtDepot bool
	// Launches and recoveries need the driver, so they are serialized with
	// the truck's own service at a node.
	RequireDriver bool
}

func DefaultOptions() Options {
	return Options{RequireTruckAtDepot: true, RequireDriver: true}
}

type sortieKey struct {
	v, i, j, k int
}

type windowKey struct {
	v, i, k int
}

// Instance is the fixed data of one problem: node set with the depot copy,
// truck and drone travel tables, service and overhead times, the endurance
// table and the set of admissible sorties.
type Instance struct {
	Nodes       []domain.Node
	Fleet       *domain.Fleet
	Customers   []int
	Depot       int
	DepotReturn int
	Options     Options

	// Largest truck travel time between any two nodes.
	BigM float64

	tau       [][]float64
	truckDist [][]float64
	droneLegs map[int][][]domain.TravelLeg
	drones    map[int]domain.Vehicle
	eee       map[sortieKey]float64
	eeePrime  map[windowKey]float64
	admitted  map[sortieKey]struct{}
	// customer -> admissible sorties, ordered by drone, launch, recovery
	byCustomer map[int][]domain.Sortie
}

// BuildInstance derives every table the heuristic needs. nodes must hold
// the depot with id 0 followed by customers 1..c; the depot copy c+1 is
// added here. Configuration problems (energy model, vehicle data) are
// reported before any sortie is priced.
func BuildInstance(nodes []domain.Node, fleet *domain.Fleet, truck domain.TruckMatrix, calc *energy.Calculator, opts Options) (*Instance, error) {
	if fleet == nil {
		return nil, errors.New("build instance: fleet must be non-nil")
	}
	if calc == nil {
		return nil, errors.New("build instance: energy calculator must be non-nil")
	}
	if len(nodes) == 0 || nodes[0].Kind != domain.NodeDepot {
		return nil, errors.New("build instance: first node must be the depot")
	}
	for idx, n := range nodes {
		if n.ID != idx {
			return nil, fmt.Errorf("build instance: node ids must be 0..%d in order, found %d at %d", len(nodes)-1, n.ID, idx)
		}
		if idx > 0 && n.Kind != domain.NodeCustomer {
			return nil, fmt.Errorf("build instance: node %d must be a customer", n.ID)
		}
	}

	for _, d := range fleet.Drones {
		if err := calc.Validate(d); err != nil {
			return nil, fmt.Errorf("build instance: %w", err)
		}
	}

	c := len(nodes) - 1
	in := &Instance{
		Nodes:       slices.Clone(nodes),
		Fleet:       fleet,
		Depot:       0,
		DepotReturn: c + 1,
		Options:     opts,
		droneLegs:   make(map[int][][]domain.TravelLeg, len(fleet.Drones)),
		drones:      make(map[int]domain.Vehicle, len(fleet.Drones)),
		eee:         make(map[sortieKey]float64),
		eeePrime:    make(map[windowKey]float64),
		admitted:    make(map[sortieKey]struct{}),
		byCustomer:  make(map[int][]domain.Sortie),
	}
	copyNode := nodes[0]
	copyNode.ID = c + 1
	copyNode.Kind = domain.NodeDepotReturn
	in.Nodes = append(in.Nodes, copyNode)
	for j := 1; j <= c; j++ {
		in.Customers = append(in.Customers, j)
	}

	if err := in.buildTruckTables(truck); err != nil {
		return nil, err
	}
	in.buildDroneLegs()
	if err := in.buildSorties(calc); err != nil {
		return nil, err
	}
	return in, nil
}

// physical maps the depot copy onto the depot for table lookups.
func (in *Instance) physical(n int) int {
	if n == in.DepotReturn {
		return in.Depot
	}
	return n
}

func (in *Instance) buildTruckTables(m domain.TruckMatrix) error {
	n := len(in.Nodes)
	in.tau = make([][]float64, n)
	in.truckDist = make([][]float64, n)
	for i := range n {
		in.tau[i] = make([]float64, n)
		in.truckDist[i] = make([]float64, n)
	}

	for i := 0; i < in.DepotReturn; i++ {
		for j := 0; j <= in.DepotReturn; j++ {
			pj := in.physical(j)
			if i == pj {
				continue
			}
			leg, ok := m.Get(i, pj)
			if !ok {
				return &domain.ConfigurationError{Op: "build instance", Msg: fmt.Sprintf("missing truck leg %d->%d", i, pj)}
			}
			in.tau[i][j] = leg.TotalTime
			in.truckDist[i][j] = leg.TotalDist
			if leg.TotalTime > in.BigM {
				in.BigM = leg.TotalTime
			}
		}
	}
	return nil
}

func (in *Instance) buildDroneLegs() {
	for _, d := range in.Fleet.Drones {
		in.drones[d.ID] = d
		p := kinematics.ProfileOf(d)
		legs := make([][]domain.TravelLeg, len(in.Nodes))
		for i := range legs {
			legs[i] = make([]domain.TravelLeg, len(in.Nodes))
		}
		for i := 0; i < in.DepotReturn; i++ {
			for j := 0; j <= in.DepotReturn; j++ {
				pj := in.physical(j)
				if i == pj {
					continue
				}
				legs[i][j] = kinematics.Travel(p, in.Nodes[i].Position, in.Nodes[pj].Position,
					kinematics.UnknownHeading, kinematics.UnknownHeading)
			}
		}
		in.droneLegs[d.ID] = legs
	}
}

func (in *Instance) buildSorties(calc *energy.Calculator) error {
	for _, d := range in.Fleet.Drones {
		v := d.ID
		for i := 0; i < in.DepotReturn; i++ {
			for _, j := range in.Customers {
				if j == i || in.Nodes[j].ParcelWeightLbs > d.CapacityLbs {
					continue
				}
				for k := 1; k <= in.DepotReturn; k++ {
					if k == i || k == j {
						continue
					}
					e, err := calc.Endurance(energy.Sortie{
						Vehicle:     d,
						Out:         in.droneLegs[v][i][j],
						Back:        in.droneLegs[v][j][k],
						ParcelLbs:   in.Nodes[j].ParcelWeightLbs,
						ServiceTime: in.SigmaPrime(j),
						GroundMeters: kinematics.GroundDistance(in.Nodes[i].Position, in.Nodes[j].Position) +
							kinematics.GroundDistance(in.Nodes[j].Position, in.Nodes[in.physical(k)].Position),
					})
					if err != nil {
						return fmt.Errorf("build instance: sortie <%d,%d,%d,%d>: %w", v, i, j, k, err)
					}

					key := sortieKey{v, i, j, k}
					in.eee[key] = e
					wk := windowKey{v, i, k}
					in.eeePrime[wk] = math.Max(in.eeePrime[wk], e)

					if in.SortieDuration(v, i, j, k) > e {
						continue
					}
					if in.tau[i][k] > e && (in.Options.RequireTruckAtDepot || k != in.DepotReturn) {
						continue
					}
					in.admitted[key] = struct{}{}
					in.byCustomer[j] = append(in.byCustomer[j], domain.Sortie{Drone: v, Launch: i, Customer: j, Recover: k})
				}
			}
		}
	}
	return nil
}

// NumCustomers is c.
func (in *Instance) NumCustomers() int { return len(in.Customers) }

// DroneIDs in fleet order.
func (in *Instance) DroneIDs() []int { return in.Fleet.DroneIDs() }

func (in *Instance) NumDrones() int { return len(in.Fleet.Drones) }

// Drone with the smallest id, used for fleet-wide overhead estimates.
func (in *Instance) minDrone() (domain.Vehicle, bool) {
	if len(in.Fleet.Drones) == 0 {
		return domain.Vehicle{}, false
	}
	best := in.Fleet.Drones[0]
	for _, d := range in.Fleet.Drones[1:] {
		if d.ID < best.ID {
			best = d
		}
	}
	return best, true
}

// Tau is the truck travel time i->j.
func (in *Instance) Tau(i, j int) float64 { return in.tau[i][j] }

// TruckDistance is the truck travel distance i->j in meters.
func (in *Instance) TruckDistance(i, j int) float64 { return in.truckDist[i][j] }

// TauPrime is the drone travel time i->j.
func (in *Instance) TauPrime(v, i, j int) float64 {
	legs, ok := in.droneLegs[v]
	if !ok {
		return math.Inf(1)
	}
	return legs[i][j].TotalTime
}

// DroneLeg is the phase breakdown of drone v flying i->j.
func (in *Instance) DroneLeg(v, i, j int) domain.TravelLeg { return in.droneLegs[v][i][j] }

// Sigma is the truck service time at a node; zero at both depot copies.
func (in *Instance) Sigma(j int) float64 {
	if !in.Nodes[j].IsCustomer() {
		return 0
	}
	return in.Nodes[j].TruckServiceTime
}

// SigmaPrime is the drone service time at a node; zero at both depot copies.
func (in *Instance) SigmaPrime(j int) float64 {
	if !in.Nodes[j].IsCustomer() {
		return 0
	}
	return in.Nodes[j].DroneServiceTime
}

// LaunchTime is sL for drone v.
func (in *Instance) LaunchTime(v int) float64 { return in.drones[v].LaunchTime }

// RecoveryTime is sR for drone v.
func (in *Instance) RecoveryTime(v int) float64 { return in.drones[v].RecoveryTime }

// Endurance returns eee[v][i][j][k], or energy.Infeasible when the sortie
// was never priced.
func (in *Instance) Endurance(v, i, j, k int) float64 {
	e, ok := in.eee[sortieKey{v, i, j, k}]
	if !ok {
		return energy.Infeasible
	}
	return e
}

// EndurancePrime is the best endurance of any sortie launched at i and
// recovered at k by v.
func (in *Instance) EndurancePrime(v, i, k int) float64 {
	return in.eeePrime[windowKey{v, i, k}]
}

// SortieDuration is the flight plus service time of <v,i,j,k>.
func (in *Instance) SortieDuration(v, i, j, k int) float64 {
	return in.TauPrime(v, i, j) + in.SigmaPrime(j) + in.TauPrime(v, j, k)
}

// FlightFits reports whether the sortie's flight fits its endurance.
func (in *Instance) FlightFits(v, i, j, k int) bool {
	e := in.Endurance(v, i, j, k)
	return e >= 0 && in.SortieDuration(v, i, j, k) <= e
}

// Admissible reports whether <v,i,j,k> is in the sortie set P.
func (in *Instance) Admissible(v, i, j, k int) bool {
	_, ok := in.admitted[sortieKey{v, i, j, k}]
	return ok
}

// Carries reports whether drone v can lift customer j's parcel.
func (in *Instance) Carries(v, j int) bool {
	d, ok := in.drones[v]
	return ok && in.Nodes[j].ParcelWeightLbs <= d.CapacityLbs
}

// AnyDroneCarries reports whether some drone can lift customer j's parcel.
func (in *Instance) AnyDroneCarries(j int) bool {
	for v := range in.drones {
		if in.Carries(v, j) {
			return true
		}
	}
	return false
}

// DroneEligible reports whether customer j has at least one admissible sortie.
func (in *Instance) DroneEligible(j int) bool { return len(in.byCustomer[j]) > 0 }

// SortiesFor lists the admissible sorties serving j.
func (in *Instance) SortiesFor(j int) []domain.Sortie { return slices.Clone(in.byCustomer[j]) }

// ServesOnLeg reports whether some drone can serve j launching at i and
// landing at k.
func (in *Instance) ServesOnLeg(j, i, k int) bool {
	for v := range in.drones {
		if in.Admissible(v, i, j, k) {
			return true
		}
	}
	return false
}

// TourCost is the truck-alone completion time of a tour: travel plus
// service at each stop.
func (in *Instance) TourCost(t domain.Tour) float64 {
	total := 0.0
	for p := 1; p < len(t); p++ {
		total += in.tau[t[p-1]][t[p]] + in.Sigma(t[p])
	}
	return total
}

// droneCustomers lists the customers missing from a tour, ascending.
func (in *Instance) droneCustomers(t domain.Tour) []int {
	on := make(map[int]struct{}, len(t))
	for _, n := range t {
		on[n] = struct{}{}
	}
	var out []int
	for _, j := range in.Customers {
		if _, ok := on[j]; !ok {
			out = append(out, j)
		}
	}
	return out
}
