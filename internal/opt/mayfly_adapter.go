package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization. The library only takes scalar
// bounds, so the search runs in the unit cube and every candidate is mapped
// onto the per-dimension box before eval sees it.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if err := validateBounds(lower, upper, dim); err != nil {
		return nil, 0, err
	}

	scaled := make([]float64, dim)
	toBox := func(unit []float64, dst []float64) []float64 {
		for i := range dst {
			u := min(max(unit[i], 0), 1)
			dst[i] = lower[i] + u*(upper[i]-lower[i])
		}
		return dst
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(unit []float64) float64 {
		return eval(toBox(unit, scaled))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	best := toBox(result.GlobalBest.Position, make([]float64, dim))
	return best, result.GlobalBest.Cost, nil
}
