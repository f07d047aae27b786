package tsp

import (
	"context"
	"fmt"
	"math"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// MaxExactCustomers bounds HeldKarp; its table grows as 2^n * n.
const MaxExactCustomers = 12

// HeldKarp returns an optimal tour by dynamic programming over customer
// subsets. Costs may be asymmetric.
func HeldKarp(ctx context.Context, depot, depotReturn int, customers []int, cost ports.CostFunc) (domain.Tour, float64, error) {
	n := len(customers)
	if n > MaxExactCustomers {
		return nil, 0, fmt.Errorf("held-karp: %d customers exceeds limit %d", n, MaxExactCustomers)
	}
	if n == 0 {
		t := domain.NewTour(depot, depotReturn)
		return t, cost(depot, depotReturn), nil
	}

	full := 1 << n
	dp := make([][]float64, full)
	parent := make([][]int, full)
	for mask := range dp {
		dp[mask] = make([]float64, n)
		parent[mask] = make([]int, n)
		for i := range n {
			dp[mask][i] = math.Inf(1)
			parent[mask][i] = -1
		}
	}
	for i, c := range customers {
		dp[1<<i][i] = cost(depot, c)
	}

	for mask := 1; mask < full; mask++ {
		if mask&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		for last := range n {
			if mask&(1<<last) == 0 || math.IsInf(dp[mask][last], 1) {
				continue
			}
			for next := range n {
				if mask&(1<<next) != 0 {
					continue
				}
				nm := mask | 1<<next
				c := dp[mask][last] + cost(customers[last], customers[next])
				if c < dp[nm][next] {
					dp[nm][next] = c
					parent[nm][next] = last
				}
			}
		}
	}

	best, end := math.Inf(1), -1
	for last := range n {
		c := dp[full-1][last] + cost(customers[last], depotReturn)
		if c < best {
			best, end = c, last
		}
	}

	order := make([]int, n)
	mask := full - 1
	for p := n - 1; p >= 0; p-- {
		order[p] = customers[end]
		prev := parent[mask][end]
		mask &^= 1 << end
		end = prev
	}
	return domain.NewTour(depot, depotReturn, order...), best, nil
}
