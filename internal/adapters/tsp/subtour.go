package tsp

import "slices"

// Edge is one selected arc of a candidate tour.
type Edge struct {
	From int
	To   int
}

// SubtourComponents groups the nodes touched by edges into connected
// components. A single Hamiltonian cycle gives one component; k disjoint
// cycles give k. Components and their members are sorted ascending.
func SubtourComponents(edges []Edge) [][]int {
	parent := make(map[int]int)
	var find func(x int) int
	find = func(x int) int {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p != x {
			parent[x] = find(p)
		}
		return parent[x]
	}

	for _, e := range edges {
		a, b := find(e.From), find(e.To)
		if a == b {
			continue
		}
		if a < b {
			parent[b] = a
		} else {
			parent[a] = b
		}
	}

	groups := make(map[int][]int)
	for x := range parent {
		r := find(x)
		groups[r] = append(groups[r], x)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		slices.Sort(g)
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}
