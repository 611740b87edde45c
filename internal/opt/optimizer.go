package opt

import "errors"

// ErrBounds is returned when lower and upper bounds do not describe a box.
var ErrBounds = errors.New("invalid optimization bounds")

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes eval inside the box [lower, upper] of dimension dim and
	// returns the best parameters and their cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}

// validateBounds checks that lower and upper have dim entries with lower <= upper.
func validateBounds(lower, upper []float64, dim int) error {
	if dim <= 0 || len(lower) != dim || len(upper) != dim {
		return ErrBounds
	}
	for i := range lower {
		if !(lower[i] <= upper[i]) {
			return ErrBounds
		}
	}
	return nil
}
