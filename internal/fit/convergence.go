package fit

import (
	"log/slog"
	"math"
)

// ConvergenceConfig decides when further search rounds stop paying off
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of rounds without significant improvement
	// before the search stops
	Patience int

	// Threshold is the minimum relative improvement that counts as progress.
	// Relative improvement = (lastSignificant - cost) / lastSignificant
	Threshold float64
}

// DefaultConvergenceConfig stops after two rounds that gain less than 0.1%
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  2,
		Threshold: 0.001,
	}
}

// ConvergenceTracker follows the best cost after each round
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestCost        float64
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestCost:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records the cost of a round and reports whether the search has converged
func (c *ConvergenceTracker) Update(cost float64) bool {
	c.history = append(c.history, cost)
	if cost < c.bestCost {
		c.bestCost = cost
	}
	if !c.config.Enabled {
		return false
	}

	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	// A perfect match cannot improve further
	if c.lastSignificant == 0 {
		c.staleCount = c.config.Patience
		return true
	}

	improvement := (c.lastSignificant - cost) / c.lastSignificant
	if improvement >= c.config.Threshold {
		c.lastSignificant = cost
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant cost improvement",
		"cost", cost,
		"last_significant", c.lastSignificant,
		"relative_improvement", improvement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)
	return c.staleCount >= c.config.Patience
}

// BestCost returns the best cost seen so far
func (c *ConvergenceTracker) BestCost() float64 {
	return c.bestCost
}

// History returns a copy of the per-round costs
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64(nil), c.history...)
}

// StaleCount returns the number of rounds since the last significant improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
