package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a caller contract violation (unknown energy
// model, unknown flight-range class, malformed vehicle data). It is fatal for
// the run and never retried.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Op, e.Msg)
}

var (
	ErrTourInfeasible     = errors.New("truck tour leaves drone customers unreachable")
	ErrTimingInfeasible   = errors.New("no feasible schedule for tour and sorties")
	ErrTimingUnknown      = errors.New("schedule search stopped before a solution was found")
	ErrNoNewTour          = errors.New("no unexplored truck tour found")
	ErrNoFeasibleSolution = errors.New("no feasible solution found")
	ErrInvariantViolation = errors.New("invariant violation")
)

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
