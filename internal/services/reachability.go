package services

import (
	"slices"

	"sidekick-route-service/internal/domain"
)

// Reachability is the verdict of the drone-coverage check on a tour.
type Reachability struct {
	Feasible bool
	// Customers with no admissible sortie on any consecutive tour leg.
	Unreachable []int
	// When every customer has a window but they cannot all launch at once:
	// a set S of customers whose launch nodes N(S) can host at most
	// |V| launches each, with |S| > |V|*|N(S)|.
	Conflicting []int
}

// Blocked lists the customers the partition phase has to fix.
func (r Reachability) Blocked() []int {
	if len(r.Unreachable) > 0 {
		return r.Unreachable
	}
	return r.Conflicting
}

// launchOptions returns, per drone customer, the tour nodes it could launch
// from: node t[p] such that some drone serves it on leg t[p] -> t[p+1].
func (in *Instance) launchOptions(t domain.Tour, droneCustomers []int) map[int][]int {
	out := make(map[int][]int, len(droneCustomers))
	for _, j := range droneCustomers {
		var opts []int
		for p := 0; p+1 < len(t); p++ {
			if in.ServesOnLeg(j, t[p], t[p+1]) {
				opts = append(opts, t[p])
			}
		}
		out[j] = opts
	}
	return out
}

// CheckReachability decides whether every drone customer can be given a
// launch node on the tour such that no node launches more than |V| drones.
//
// It is a bipartite b-matching between customers and launch nodes, solved
// with augmenting paths. When the matching cannot be completed the
// customers explored by the failed search form a Hall violator and are
// reported as the conflict set.
func (in *Instance) CheckReachability(t domain.Tour, droneCustomers []int) Reachability {
	if len(droneCustomers) == 0 {
		return Reachability{Feasible: true}
	}

	opts := in.launchOptions(t, droneCustomers)
	var r Reachability
	for _, j := range droneCustomers {
		if len(opts[j]) == 0 {
			r.Unreachable = append(r.Unreachable, j)
		}
	}
	if len(r.Unreachable) > 0 {
		slices.Sort(r.Unreachable)
		return r
	}

	m := newLaunchMatching(opts, in.NumDrones())
	for _, j := range droneCustomers {
		if ok, explored := m.assign(j); !ok {
			r.Conflicting = explored
			slices.Sort(r.Conflicting)
			return r
		}
	}
	r.Feasible = true
	return r
}

type launchMatching struct {
	opts     map[int][]int
	capacity int
	load     map[int][]int // launch node -> customers assigned
	at       map[int]int   // customer -> launch node
}

func newLaunchMatching(opts map[int][]int, capacity int) *launchMatching {
	return &launchMatching{
		opts:     opts,
		capacity: capacity,
		load:     make(map[int][]int),
		at:       make(map[int]int),
	}
}

// assign finds an augmenting path for customer j. On failure it returns
// every customer reached by the search.
func (m *launchMatching) assign(j int) (bool, []int) {
	visited := make(map[int]bool)
	reached := map[int]bool{j: true}
	if m.augment(j, visited, reached) {
		return true, nil
	}
	out := make([]int, 0, len(reached))
	for c := range reached {
		out = append(out, c)
	}
	return false, out
}

func (m *launchMatching) augment(j int, visited, reached map[int]bool) bool {
	for _, i := range m.opts[j] {
		if visited[i] {
			continue
		}
		visited[i] = true
		if len(m.load[i]) < m.capacity {
			m.place(j, i)
			return true
		}
		for _, other := range slices.Clone(m.load[i]) {
			reached[other] = true
			if m.augment(other, visited, reached) {
				m.place(j, i)
				return true
			}
		}
	}
	return false
}

func (m *launchMatching) place(j, i int) {
	if prev, ok := m.at[j]; ok {
		m.load[prev] = slices.DeleteFunc(m.load[prev], func(c int) bool { return c == j })
	}
	m.at[j] = i
	m.load[i] = append(m.load[i], j)
}
